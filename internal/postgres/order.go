// Package postgres implements the order and stock stores on PostgreSQL.
// The unique constraint on orders.order_reference is the concurrency control
// mechanism for the at-most-once finalize guarantee; there are no advisory
// locks or serializable transactions.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// OrderStore implements domain.OrderStore using pgx.
type OrderStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that OrderStore implements domain.OrderStore.
var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates a PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreatePending writes the pending row at submit-order time so abandoned
// checkouts leave an audit trail. A duplicate reference reports
// OutcomeAlreadyExists without touching the existing row.
func (s *OrderStore) CreatePending(ctx context.Context, order *domain.Order) (domain.InsertOutcome, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return 0, domain.Internal(err, "order.create_pending", "failed to encode line items")
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO orders (
			order_reference, tracking_id, status, amount, currency,
			customer_id, shipping_address, line_items, created_at, updated_at
		) VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (order_reference) DO NOTHING`,
		order.OrderReference, order.TrackingID, order.Amount, order.Currency,
		order.CustomerID, order.ShippingAddress, items,
	)
	if err != nil {
		return 0, domain.Internal(err, "order.create_pending", "failed to insert pending order")
	}
	if tag.RowsAffected() == 0 {
		return domain.OutcomeAlreadyExists, nil
	}
	return domain.OutcomeInserted, nil
}

// Finalize records a terminal decision for the reference. The upsert promotes
// a pending row or inserts a fresh one; the WHERE guard on the conflict arm
// makes promotion of an already-terminal row affect zero rows, which is the
// duplicate-finalize signal.
func (s *OrderStore) Finalize(ctx context.Context, order *domain.Order) (domain.InsertOutcome, error) {
	if !order.Status.Terminal() {
		return 0, domain.Invalid("order.finalize", "finalize requires a terminal status")
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return 0, domain.Internal(err, "order.finalize", "failed to encode line items")
	}

	var reference string
	err = s.pool.QueryRow(ctx, `
		INSERT INTO orders (
			order_reference, tracking_id, status, amount, currency,
			payment_method, confirmation_code, payment_account, payment_date,
			customer_id, shipping_address, line_items, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (order_reference) DO UPDATE SET
			tracking_id       = EXCLUDED.tracking_id,
			status            = EXCLUDED.status,
			amount            = EXCLUDED.amount,
			currency          = EXCLUDED.currency,
			payment_method    = EXCLUDED.payment_method,
			confirmation_code = EXCLUDED.confirmation_code,
			payment_account   = EXCLUDED.payment_account,
			payment_date      = EXCLUDED.payment_date,
			updated_at        = now()
		WHERE orders.status = 'pending'
		RETURNING order_reference`,
		order.OrderReference, order.TrackingID, string(order.Status), order.Amount, order.Currency,
		order.PaymentMethod, order.ConfirmationCode, order.PaymentAccount, nullableTime(order.PaymentDate),
		order.CustomerID, order.ShippingAddress, items,
	).Scan(&reference)

	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict arm skipped: the stored row is already terminal.
		return domain.OutcomeAlreadyExists, nil
	}
	if err != nil {
		return 0, domain.Internal(err, "order.finalize", "failed to finalize order")
	}
	return domain.OutcomeInserted, nil
}

// GetByReference returns the stored order for a merchant reference.
func (s *OrderStore) GetByReference(ctx context.Context, reference string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT order_reference, tracking_id, status, amount, currency,
		       payment_method, confirmation_code, payment_account, payment_date,
		       customer_id, shipping_address, line_items, created_at, updated_at
		FROM orders
		WHERE order_reference = $1`,
		reference,
	)

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "order.get", "failed to load order")
	}
	return order, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *OrderStore) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_reference, tracking_id, status, amount, currency,
		       payment_method, confirmation_code, payment_account, payment_date,
		       customer_id, shipping_address, line_items, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, "order.list", "failed to scan order")
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.list", "failed to read orders")
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o           domain.Order
		status      string
		paymentDate *time.Time
		items       []byte
	)

	err := row.Scan(
		&o.OrderReference, &o.TrackingID, &status, &o.Amount, &o.Currency,
		&o.PaymentMethod, &o.ConfirmationCode, &o.PaymentAccount, &paymentDate,
		&o.CustomerID, &o.ShippingAddress, &items, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	if paymentDate != nil {
		o.PaymentDate = *paymentDate
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to decode line items: %w", err)
		}
	}
	return &o, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
