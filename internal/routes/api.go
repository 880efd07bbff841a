package routes

import (
	"github.com/freightdesk/backoffice/internal/router"
)

// RegisterAPIRoutes wires the invoice API under /api. Every route runs behind
// the franchise middleware; literal segments (summary, recycled, batch, ...)
// are registered so ServeMux prefers them over the {id} pattern.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	api := r.Group(deps.Franchise)

	api.Get("/api/invoices", deps.Invoices.List)
	api.Get("/api/invoices/summary", deps.Invoices.Summary)
	api.Get("/api/invoices/summary/single", deps.Invoices.SingleSummary)
	api.Get("/api/invoices/recycled", deps.Invoices.ListRecycled)
	api.Get("/api/invoices/{id}", deps.Invoices.Get)

	api.Post("/api/invoices", deps.Invoices.Generate)
	api.Post("/api/invoices/batch", deps.Invoices.GenerateBatch)
	api.Post("/api/invoices/single", deps.Invoices.GenerateSingle)
	api.Post("/api/invoices/without-gst", deps.Invoices.GenerateWithoutGST)

	api.Put("/api/invoices/{id}", deps.Invoices.UpdatePayment)
	api.Delete("/api/invoices/{id}", deps.Invoices.Delete)
}
