package schemas

// Boundary resource shapes. These mirror the dashboard's REST resources just
// closely enough for list views and CSV export; the tracking subsystem never
// interprets them.

type Transaction struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
	Category   string `json:"category,omitempty"`
	Contractor string `json:"contractor,omitempty"`
	Account    string `json:"account,omitempty"`
}

type TransactionListResponse struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
}

type TransactionFilter struct {
	DateFrom string
	DateTo   string
	Category string
	Limit    int
	Offset   int
}

type Contract struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Contractor  string `json:"contractor"`
	Balance     string `json:"balance"`
	CreditLimit string `json:"credit_limit,omitempty"`
	Status      string `json:"status,omitempty"`
}

type ContractListResponse struct {
	Contracts []Contract `json:"contracts"`
	Total     int        `json:"total"`
}

type Receipt struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Total string `json:"total"`
	Items int    `json:"items,omitempty"`
}

type ReceiptListResponse struct {
	Receipts []Receipt `json:"receipts"`
	Total    int       `json:"total"`
}
