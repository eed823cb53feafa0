package customers

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute("/customers"))
		r.Get("/customers", h.List)
		r.Get("/customers/search.json", h.SearchJSON)
		r.Get("/customers/new", h.ShowForm)
		r.Post("/customers", h.Create)
		r.Get("/customers/{id}/edit", h.ShowEditForm)
		r.Post("/customers/{id}/edit", h.Update)
		r.Post("/customers/{id}/delete", h.Delete)
	})
}
