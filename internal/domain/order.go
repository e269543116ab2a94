package domain

import (
	"context"
	"time"
)

// Order-related domain errors.
var (
	ErrOrderNotFound        = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrInsufficientStock    = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
	ErrInvalidCustomerToken = &Error{Code: EUNAUTHORIZED, Message: "Invalid or expired session token"}
)

// OrderStatus is the persisted lifecycle state of an order.
// pending is the only non-terminal state; paid and failed are monotonic.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderFailed
}

// LineItem is a snapshot of one cart line taken at checkout time.
// It copies name and price so later catalog changes never alter a placed order.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ImageRef  string  `json:"image_ref,omitempty"`
}

// Order represents one checkout attempt.
// OrderReference is the merchant-generated idempotency key; TrackingID is the
// provider-assigned correlation key used for status queries.
type Order struct {
	OrderReference string
	TrackingID     string
	Status         OrderStatus

	// Provider-sourced metadata, written once at finalize time.
	Amount           float64
	Currency         string
	PaymentMethod    string
	ConfirmationCode string
	PaymentAccount   string
	PaymentDate      time.Time

	CustomerID      string
	ShippingAddress string
	Items           []LineItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal sums the snapshot line items.
func (o *Order) Subtotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// InsertOutcome is the typed result of an insert-if-absent against the order
// store. Duplicate detection is expressed as a value, not a database error
// string the caller has to sniff.
type InsertOutcome int

const (
	// OutcomeInserted means the row was written (or a pending row promoted).
	OutcomeInserted InsertOutcome = iota

	// OutcomeAlreadyExists means a row for the reference already holds a
	// terminal status. The caller must treat this as "already finalized".
	OutcomeAlreadyExists
)

// OrderStore is the durable order record plus the at-most-once guard.
// The uniqueness constraint on OrderReference is the concurrency control
// mechanism; there are no long-held locks.
type OrderStore interface {
	// CreatePending writes the pending row at submit-order time. A second
	// attempt for the same reference reports OutcomeAlreadyExists.
	CreatePending(ctx context.Context, order *Order) (InsertOutcome, error)

	// Finalize atomically records a terminal decision for the reference.
	// It inserts the row, or promotes an existing pending row; if the row is
	// already terminal it reports OutcomeAlreadyExists and writes nothing.
	Finalize(ctx context.Context, order *Order) (InsertOutcome, error)

	// GetByReference returns the stored order, or ErrOrderNotFound.
	GetByReference(ctx context.Context, reference string) (*Order, error)

	// ListByCustomer returns the customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
}

// StockStore adjusts inventory counts. Decrements are best-effort and are not
// transactional with Finalize; failures must never reverse a finalize decision.
type StockStore interface {
	DecrementStock(ctx context.Context, items []LineItem) error
}
