package events

import (
	"context"
	"sync"
)

// MockPublisher is a test double recording published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []OrderFinalized

	PublishOrderFinalizedFunc func(ctx context.Context, event OrderFinalized) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishOrderFinalized(ctx context.Context, event OrderFinalized) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()

	if m.PublishOrderFinalizedFunc != nil {
		return m.PublishOrderFinalizedFunc(ctx, event)
	}
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []OrderFinalized {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderFinalized, len(m.Events))
	copy(out, m.Events)
	return out
}
