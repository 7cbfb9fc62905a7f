package ap

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.ListSuppliers)
		r.Post("/", h.CreateSupplier)
		r.Get("/{id}", h.GetSupplier)
		r.Get("/{id}/payments", h.ListPayments)
		r.Post("/{id}/payments", h.RecordPayment)
	})
}
