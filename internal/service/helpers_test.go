package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// memStore is an in-memory OrderStore with the same finalize semantics as the
// database layer: insert-if-absent, promote-if-pending, no-op if terminal.
type memStore struct {
	mu            sync.Mutex
	orders        map[string]*domain.Order
	finalizeCalls int
	createCalls   int

	failFinalize error
	failGet      error
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]*domain.Order)}
}

func (m *memStore) CreatePending(_ context.Context, order *domain.Order) (domain.InsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if _, ok := m.orders[order.OrderReference]; ok {
		return domain.OutcomeAlreadyExists, nil
	}
	cp := *order
	cp.Status = domain.OrderPending
	m.orders[order.OrderReference] = &cp
	return domain.OutcomeInserted, nil
}

func (m *memStore) Finalize(_ context.Context, order *domain.Order) (domain.InsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finalizeCalls++
	if m.failFinalize != nil {
		return 0, m.failFinalize
	}

	if existing, ok := m.orders[order.OrderReference]; ok && existing.Status.Terminal() {
		return domain.OutcomeAlreadyExists, nil
	}
	cp := *order
	m.orders[order.OrderReference] = &cp
	return domain.OutcomeInserted, nil
}

func (m *memStore) GetByReference(_ context.Context, reference string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	order, ok := m.orders[reference]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *memStore) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, order := range m.orders {
		if order.CustomerID == customerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memStore) seed(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.OrderReference] = &cp
}

func (m *memStore) get(reference string) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[reference]
	if !ok {
		return nil
	}
	cp := *order
	return &cp
}

func (m *memStore) finalizes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalizeCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
