package routes

import (
	"github.com/freightdesk/backoffice/internal/handler/api"
	"github.com/freightdesk/backoffice/internal/router"
)

// APIDeps contains dependencies for the invoice API routes.
type APIDeps struct {
	// Invoices is the invoice API handler.
	Invoices *api.InvoiceHandler

	// Franchise resolves the franchise headers set by the gateway and
	// rejects unscoped requests.
	Franchise router.Middleware
}
