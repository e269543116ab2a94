package routes

import (
	"github.com/prg-04/uptime-decor-lights-sub000/internal/middleware"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/router"
)

// RegisterStorefrontRoutes registers the customer-facing routes.
//
// Checkout and the payment confirmation return are rate limited per client
// IP because each request costs at least one gateway API call. The
// confirmation route gets a long timeout to cover its status polling loop.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	checkoutLimit := middleware.RateLimit(middleware.CheckoutRateLimiterConfig())

	// Catalog
	r.Get("/api/products", deps.ProductHandler.HandleList)
	r.Get("/api/products/{id}", deps.ProductHandler.HandleDetail)

	// Checkout
	r.Post("/api/checkout", deps.CheckoutHandler.HandleCheckout,
		checkoutLimit,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)

	// Hosted payment page return
	r.Get("/payment-confirmation", deps.ConfirmationHandler.HandleConfirmation,
		checkoutLimit,
		middleware.Timeout(middleware.ReconcileTimeout),
	)

	// Order history
	r.Get("/account/orders", deps.OrderHandler.HandleList, middleware.RequireCustomer)
	r.Get("/account/orders/{reference}", deps.OrderHandler.HandleDetail, middleware.RequireCustomer)
	r.Post("/account/orders/{reference}/recheck", deps.OrderHandler.HandleRecheck,
		middleware.RequireCustomer,
		checkoutLimit,
	)
}
