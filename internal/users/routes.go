package users

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireRoute("/users"))
	r.Get("/", h.List)
	r.Get("/new", h.Form)
	r.Post("/", h.Create)
	r.Post("/{id}/toggle", h.Toggle)
	r.Post("/{id}/delete", h.Delete)
}
