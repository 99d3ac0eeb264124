package docflow

import "github.com/go-chi/chi/v5"

// MountRoutes registers the flow endpoints under an owner scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/owners/{ownerID}/flows", func(r chi.Router) {
		r.Post("/", h.StartFlow)
		r.Get("/{flowID}", h.GetFlow)
		r.Post("/{flowID}/supplier", h.ConfirmSupplier)
		r.Post("/{flowID}/supplier/cancel", h.CancelSupplierStep)
		r.Post("/{flowID}/review", h.CompleteProductReview)
		r.Post("/{flowID}/save", h.SaveDocument)
		r.Post("/{flowID}/discrepancies", h.ResolveDiscrepancies)
	})
}
