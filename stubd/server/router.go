package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.MiddlewareLogger)
	r.Get("/version", s.HandlerVersion)
	r.Post("/api/tasks", s.HandlerCreateTask)
	r.Get("/api/tasks", s.HandlerListTasks)
	r.Get("/api/tasks/{id}", s.HandlerGetTask)
	r.Post("/api/tasks/{id}/cancel", s.HandlerCancelTask)
	r.Get("/api/tasks/{id}/ws", s.HandlerTaskStream)
	r.Get("/api/transactions", s.HandlerListTransactions)
	r.Get("/api/transactions/export", s.HandlerExportTransactions)
	r.Get("/api/contracts", s.HandlerListContracts)
	r.Get("/api/receipts", s.HandlerListReceipts)
	return r
}
