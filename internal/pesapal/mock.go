package pesapal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mock is a test double for Gateway. Each method delegates to the matching
// function field when set, otherwise returns a plausible success. CallLog
// records every invocation for assertions and is safe for concurrent use.
type Mock struct {
	TokenFunc                func(ctx context.Context) (string, error)
	RegisterIPNFunc          func(ctx context.Context, token string) (string, error)
	SubmitOrderFunc          func(ctx context.Context, token, notificationID string, params SubmitOrderParams) (*OrderSession, error)
	GetTransactionStatusFunc func(ctx context.Context, trackingID string) (*TransactionStatus, error)

	mu      sync.Mutex
	CallLog []string
}

// Compile-time check that Mock implements Gateway.
var _ Gateway = (*Mock)(nil)

// NewMock creates a mock gateway.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(call string) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, call)
	m.mu.Unlock()
}

// Calls returns a copy of the recorded call log.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.CallLog))
	copy(out, m.CallLog)
	return out
}

// StatusCalls counts GetTransactionStatus invocations recorded in CallLog.
func (m *Mock) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.CallLog {
		if strings.HasPrefix(c, "GetTransactionStatus") {
			n++
		}
	}
	return n
}

func (m *Mock) Token(ctx context.Context) (string, error) {
	m.record("Token()")
	if m.TokenFunc != nil {
		return m.TokenFunc(ctx)
	}
	return "mock-token", nil
}

func (m *Mock) RegisterIPN(ctx context.Context, token string) (string, error) {
	m.record("RegisterIPN()")
	if m.RegisterIPNFunc != nil {
		return m.RegisterIPNFunc(ctx, token)
	}
	return "mock-ipn-id", nil
}

func (m *Mock) SubmitOrder(ctx context.Context, token, notificationID string, params SubmitOrderParams) (*OrderSession, error) {
	m.record(fmt.Sprintf("SubmitOrder(%s)", params.OrderReference))
	if m.SubmitOrderFunc != nil {
		return m.SubmitOrderFunc(ctx, token, notificationID, params)
	}
	return &OrderSession{
		TrackingID:        "trk-" + params.OrderReference,
		MerchantReference: params.OrderReference,
		RedirectURL:       "https://pay.example.test/session/" + params.OrderReference,
	}, nil
}

func (m *Mock) GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error) {
	m.record(fmt.Sprintf("GetTransactionStatus(%s)", trackingID))
	if m.GetTransactionStatusFunc != nil {
		return m.GetTransactionStatusFunc(ctx, trackingID)
	}
	return &TransactionStatus{StatusDescription: "PENDING"}, nil
}
