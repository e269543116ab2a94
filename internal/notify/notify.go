// Package notify delivers order notifications to the store operator. Delivery
// is best-effort: a failed send is logged by the caller and never affects
// order state.
package notify

import (
	"context"
	"time"
)

// OrderSummary is the notification payload describing a finalized order.
type OrderSummary struct {
	OrderReference   string
	Status           string
	Amount           float64
	Currency         string
	PaymentMethod    string
	ConfirmationCode string
	CustomerID       string
	ShippingAddress  string
	ItemCount        int
	FinalizedAt      time.Time
}

// Notifier sends a fire-and-forget order notification.
type Notifier interface {
	Notify(ctx context.Context, summary OrderSummary) error
}
