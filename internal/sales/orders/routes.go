package orders

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute("/orders/list"))
		r.Get("/orders/list", h.List)
		r.Get("/orders/{id}", h.Show)
		r.Get("/orders/{id}/invoice.pdf", h.Invoice)
		r.Post("/orders/{id}/cancel", h.Cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute("/orders/new"))
		r.Get("/orders/new", h.ShowForm)
		r.Post("/orders/new/customer", h.SelectCustomer)
		r.Post("/orders/new/customer/clear", h.ClearCustomer)
		r.Post("/orders/new/items", h.AddItem)
		r.Post("/orders/new/items/{productID}", h.UpdateItem)
		r.Post("/orders/new/items/{productID}/remove", h.RemoveItem)
		r.Post("/orders/new/clear", h.ClearCart)
		r.Post("/orders/new/submit", h.Submit)
	})
}
