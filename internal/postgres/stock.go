package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// StockStore implements domain.StockStore using pgx.
type StockStore struct {
	pool *pgxpool.Pool
}

var _ domain.StockStore = (*StockStore)(nil)

// NewStockStore creates a PostgreSQL-backed stock store.
func NewStockStore(pool *pgxpool.Pool) *StockStore {
	return &StockStore{pool: pool}
}

// DecrementStock reduces inventory for each line item. The WHERE guard keeps
// counts non-negative (optimistic check, no row lock); an item with
// insufficient stock reports ErrInsufficientStock but earlier decrements in
// the slice are kept. The adjustment is best-effort and not transactional
// with order finalization.
func (s *StockStore) DecrementStock(ctx context.Context, items []domain.LineItem) error {
	for _, item := range items {
		tag, err := s.pool.Exec(ctx, `
			UPDATE product_stock
			SET quantity = quantity - $2, updated_at = now()
			WHERE product_id = $1 AND quantity >= $2`,
			item.ProductID, item.Quantity,
		)
		if err != nil {
			return domain.Internal(err, "stock.decrement", "failed to decrement stock")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInsufficientStock
		}
	}
	return nil
}
