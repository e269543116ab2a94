// Package events carries the order-finalized event from the reconciliation
// engine to the side-effect worker. Publishing happens strictly after the
// terminal decision is durably recorded; a publish failure is logged and
// never reverses the decision.
package events

import (
	"context"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// SubjectOrderFinalized is the subject finalized-order events are published on.
const SubjectOrderFinalized = "orders.finalized"

// OrderFinalized is emitted exactly once per finalize commit. The worker uses
// it to decrement stock and dispatch the customer notification.
type OrderFinalized struct {
	OrderReference   string            `json:"order_reference"`
	TrackingID       string            `json:"tracking_id"`
	Status           string            `json:"status"`
	Amount           float64           `json:"amount"`
	Currency         string            `json:"currency"`
	PaymentMethod    string            `json:"payment_method"`
	ConfirmationCode string            `json:"confirmation_code"`
	CustomerID       string            `json:"customer_id"`
	ShippingAddress  string            `json:"shipping_address"`
	Items            []domain.LineItem `json:"items"`
	FinalizedAt      time.Time         `json:"finalized_at"`
}

// Publisher dispatches order lifecycle events.
type Publisher interface {
	PublishOrderFinalized(ctx context.Context, event OrderFinalized) error
}
