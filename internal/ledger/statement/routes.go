package statement

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Build)
	r.Get("/export", h.Export)
	r.Get("/trial-balance", h.TrialBalance)
}
