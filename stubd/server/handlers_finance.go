package server

import (
	"encoding/csv"
	"net/http"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
)

// Canned boundary data so list views and CSV export can be exercised
// against the stub without a real backend.
var stubTransactions = []schemas.Transaction{
	{ID: "txn-001", Date: "2026-08-01", Amount: "-12500.00", Currency: "RUB", Purpose: "Office rent, August", Category: "rent", Contractor: "ООО Офис-Центр", Account: "40702810001"},
	{ID: "txn-002", Date: "2026-08-03", Amount: "84000.00", Currency: "RUB", Purpose: "Payment under contract 17/25", Category: "revenue", Contractor: "АО СтройИнвест", Account: "40702810001"},
	{ID: "txn-003", Date: "2026-08-05", Amount: "-3200.50", Currency: "RUB", Purpose: "Fuel", Category: "transport", Contractor: "Газпромнефть", Account: "40702810002"},
	{ID: "txn-004", Date: "2026-08-12", Amount: "-45000.00", Currency: "RUB", Purpose: "Materials delivery", Category: "materials", Contractor: "ООО СнабСервис", Account: "40702810001"},
}

var stubContracts = []schemas.Contract{
	{ID: "ctr-01", Number: "17/25", Contractor: "АО СтройИнвест", Balance: "126000.00", CreditLimit: "500000.00", Status: "active"},
	{ID: "ctr-02", Number: "03/24", Contractor: "ООО СнабСервис", Balance: "-45000.00", Status: "active"},
}

var stubReceipts = []schemas.Receipt{
	{ID: "rcp-01", Date: "2026-08-05", Total: "3200.50", Items: 1},
	{ID: "rcp-02", Date: "2026-08-14", Total: "1180.00", Items: 4},
}

func filterTransactions(r *http.Request) []schemas.Transaction {
	query := r.URL.Query()
	dateFrom := query.Get("date_from")
	dateTo := query.Get("date_to")
	category := query.Get("category")

	filtered := make([]schemas.Transaction, 0, len(stubTransactions))
	for _, txn := range stubTransactions {
		if dateFrom != "" && txn.Date < dateFrom {
			continue
		}
		if dateTo != "" && txn.Date > dateTo {
			continue
		}
		if category != "" && txn.Category != category {
			continue
		}
		filtered = append(filtered, txn)
	}
	return filtered
}

func (s *Server) HandlerListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions := filterTransactions(r)
	RenderJSON(w, r, schemas.TransactionListResponse{
		Transactions: transactions,
		Total:        len(transactions),
	})
}

func (s *Server) HandlerExportTransactions(w http.ResponseWriter, r *http.Request) {
	transactions := filterTransactions(r)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"id", "date", "amount", "currency", "purpose", "category", "contractor", "account"})
	for _, txn := range transactions {
		_ = writer.Write([]string{txn.ID, txn.Date, txn.Amount, txn.Currency, txn.Purpose, txn.Category, txn.Contractor, txn.Account})
	}
	writer.Flush()
}

func (s *Server) HandlerListContracts(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, schemas.ContractListResponse{Contracts: stubContracts, Total: len(stubContracts)})
}

func (s *Server) HandlerListReceipts(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, schemas.ReceiptListResponse{Receipts: stubReceipts, Total: len(stubReceipts)})
}
