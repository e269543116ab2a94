package routes

import (
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler/storefront"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler/webhook"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Catalog
	ProductHandler *storefront.ProductHandler

	// Checkout and the return from the hosted payment page
	CheckoutHandler     *storefront.CheckoutHandler
	ConfirmationHandler *storefront.ConfirmationHandler

	// Account (order history)
	OrderHandler *storefront.OrderHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	IPNHandler *webhook.IPNHandler
}
