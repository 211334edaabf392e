package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, deals *DealHandler, admin *AdminHandler) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/deals", func(r chi.Router) {
		r.Get("/", deals.ListDeals)
		r.Get("/{deal_id}/history", deals.GetDealHistory)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireToken)
		r.Get("/outbox", admin.ListOutbox)
		r.Post("/test-email", admin.SendTestEmail)
		r.Post("/runs", admin.TriggerRun)
	})
}
