package notify

import (
	"context"
	"sync"
)

// Mock records notified summaries for assertions.
type Mock struct {
	mu        sync.Mutex
	Summaries []OrderSummary

	NotifyFunc func(ctx context.Context, summary OrderSummary) error
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Notify(ctx context.Context, summary OrderSummary) error {
	m.mu.Lock()
	m.Summaries = append(m.Summaries, summary)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, summary)
	}
	return nil
}

func (m *Mock) Notified() []OrderSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderSummary, len(m.Summaries))
	copy(out, m.Summaries)
	return out
}
