package schemas

import (
	"regexp"

	z "github.com/Oudwins/zog"
)

// SyncKind identifies one long-running job the backend knows how to run.
type SyncKind string

const (
	SyncTransactions  SyncKind = "sync_transactions"
	SyncContractors   SyncKind = "sync_contractors"
	SyncOrganizations SyncKind = "sync_organizations"
	SyncCategories    SyncKind = "sync_categories"
	SyncAll           SyncKind = "sync_all"
	ImportFTP         SyncKind = "import_ftp"
)

func SyncKinds() []SyncKind {
	return []SyncKind{
		SyncTransactions,
		SyncContractors,
		SyncOrganizations,
		SyncCategories,
		SyncAll,
		ImportFTP,
	}
}

type SyncParams struct {
	DateFrom     string `json:"date_from,omitempty" zog:"date_from"`
	DateTo       string `json:"date_to,omitempty" zog:"date_to"`
	AutoClassify bool   `json:"auto_classify,omitempty" zog:"auto_classify"`
}

type TaskCreateRequest struct {
	Kind   SyncKind   `json:"kind" zog:"kind"`
	Params SyncParams `json:"params" zog:"params"`
}

type TaskCreateResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var syncParamsSchema = z.Struct(z.Shape{
	"DateFrom":     z.String().Optional().Trim().Match(isoDateRegex),
	"DateTo":       z.String().Optional().Trim().Match(isoDateRegex),
	"AutoClassify": z.Bool().Optional(),
})

var TaskCreateSchema = z.Struct(z.Shape{
	"Kind":   z.StringLike[SyncKind]().Required().OneOf(SyncKinds()),
	"Params": syncParamsSchema,
})
