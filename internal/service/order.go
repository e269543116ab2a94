package service

import (
	"context"
	"fmt"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// OrderService provides read access to a customer's order history.
type OrderService interface {
	// GetOrder returns one of the customer's orders by reference.
	GetOrder(ctx context.Context, customerID, reference string) (*domain.Order, error)

	// ListOrders returns the customer's orders, newest first.
	ListOrders(ctx context.Context, customerID string) ([]domain.Order, error)
}

type orderService struct {
	store domain.OrderStore
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(store domain.OrderStore) OrderService {
	return &orderService{store: store}
}

func (s *orderService) GetOrder(ctx context.Context, customerID, reference string) (*domain.Order, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}
	if reference == "" {
		return nil, ErrMissingReference
	}

	order, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	// Another customer's reference reads as not found, never as forbidden.
	if order.CustomerID != customerID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}

	orders, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
