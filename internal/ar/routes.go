package ar

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.ListCustomers)
		r.Post("/", h.CreateCustomer)
		r.Get("/{id}", h.GetCustomer)
		r.Get("/{id}/invoices", h.ListInvoices)
		r.Get("/{id}/payments", h.ListPayments)
		r.Post("/{id}/settle", h.Settle)
	})
	r.Post("/invoices/{id}/payments", h.RecordPayment)
}
