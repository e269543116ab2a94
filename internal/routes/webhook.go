package routes

import (
	"github.com/prg-04/uptime-decor-lights-sub000/internal/middleware"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/router"
)

// RegisterWebhookRoutes registers the gateway notification routes.
//
// Webhook routes carry no authentication middleware: the notification is a
// hint, and every order reference it names is verified against the provider
// before anything is recorded.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/pesapal", deps.IPNHandler.HandleIPN,
		middleware.MaxBodySize(middleware.WebhookMaxBodySize),
	)
}
