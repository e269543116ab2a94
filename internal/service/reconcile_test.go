package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/events"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/pesapal"
)

const (
	testRef      = "UDL-20250301-9f3c21ab"
	testTracking = "trk-9f3c21ab"
)

func newTestEngine(store *memStore, gateway *pesapal.Mock, publisher *events.MockPublisher) ReconcileService {
	return NewReconcileService(store, gateway, publisher, testLogger(), nil, ReconcileConfig{
		PollAttempts: 3,
		PollDelay:    time.Millisecond,
	})
}

func seedPending(store *memStore) {
	store.seed(&domain.Order{
		OrderReference:  testRef,
		TrackingID:      testTracking,
		Status:          domain.OrderPending,
		Amount:          2499,
		Currency:        "KES",
		CustomerID:      "cust-1",
		ShippingAddress: "Moi Avenue, Nairobi",
		Items: []domain.LineItem{
			{ProductID: "p-1", Name: "Brass pendant light", Quantity: 1, UnitPrice: 2499},
		},
	})
}

func completedStatus() *pesapal.TransactionStatus {
	return &pesapal.TransactionStatus{
		StatusDescription: "Completed",
		Amount:            2499,
		Currency:          "KES",
		PaymentMethod:     "MpesaKE",
		ConfirmationCode:  "SBC123XYZ",
		MerchantReference: testRef,
		CreatedDate:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestConfirm_CompletedFinalizesAndPublishes(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		return completedStatus(), nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerRedirect,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, det.Status)
	require.NotNil(t, det.Order)
	assert.Equal(t, domain.OrderPaid, det.Order.Status)

	stored := store.get(testRef)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OrderPaid, stored.Status)
	assert.Equal(t, "SBC123XYZ", stored.ConfirmationCode)
	assert.Equal(t, "cust-1", stored.CustomerID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Brass pendant light", stored.Items[0].Name)

	require.Len(t, publisher.Published(), 1)
	assert.Equal(t, testRef, publisher.Published()[0].OrderReference)
}

func TestConfirm_SecondInvocationReturnsRecordedDecision(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		return completedStatus(), nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	params := ConfirmParams{OrderReference: testRef, TrackingID: testTracking, Trigger: TriggerRedirect}

	_, err := engine.Confirm(context.Background(), params)
	require.NoError(t, err)

	callsAfterFirst := gateway.StatusCalls()
	finalizesAfterFirst := store.finalizes()

	det, err := engine.Confirm(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, det.Status)
	assert.Equal(t, callsAfterFirst, gateway.StatusCalls(), "re-entry must not query the provider")
	assert.Equal(t, finalizesAfterFirst, store.finalizes(), "re-entry must not write")
	assert.Len(t, publisher.Published(), 1, "event must not be re-published")
}

func TestConfirm_ConcurrentInvocationsFinalizeOnce(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		return completedStatus(), nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]domain.PaymentStatus, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			det, err := engine.Confirm(context.Background(), ConfirmParams{
				OrderReference: testRef,
				TrackingID:     testTracking,
				Trigger:        TriggerWebhook,
			})
			errs[i] = err
			if det != nil {
				results[i] = det.Status
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, domain.StatusCompleted, results[i])
	}
	assert.Len(t, publisher.Published(), 1, "exactly one winner publishes")
	assert.Equal(t, domain.OrderPaid, store.get(testRef).Status)

	impl := engine.(*reconcileService)
	impl.locksMu.Lock()
	defer impl.locksMu.Unlock()
	assert.Empty(t, impl.locks, "reference locks are evicted on release")
}

func TestConfirm_CorrelationMismatchIsInvalid(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		status := completedStatus()
		status.MerchantReference = "UDL-20250301-deadbeef"
		return status, nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerWebhook,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInvalid, det.Status)
	assert.Equal(t, domain.OrderPending, store.get(testRef).Status, "mismatch must not persist a decision")
	assert.Zero(t, store.finalizes())
	assert.Empty(t, publisher.Published())
}

func TestConfirm_RecordedDecisionSkipsProvider(t *testing.T) {
	store := newMemStore()
	store.seed(&domain.Order{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Status:         domain.OrderPaid,
		Amount:         2499,
		Currency:       "KES",
	})
	gateway := pesapal.NewMock()
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerRedirect,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, det.Status)
	assert.Zero(t, gateway.StatusCalls(), "recorded decision must not query the provider")
	assert.Zero(t, store.finalizes(), "recorded decision must not write")
	assert.Empty(t, publisher.Published())
}

func TestConfirm_PendingExhaustsPollBudgetThenWebhookFinalizes(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		status := completedStatus()
		status.StatusDescription = "Pending"
		return status, nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerRedirect,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, det.Status)
	assert.Equal(t, 3, gateway.StatusCalls(), "redirect trigger polls up to the attempt budget")
	assert.Equal(t, domain.OrderPending, store.get(testRef).Status)

	// The asynchronous notification arrives later with the final status.
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		return completedStatus(), nil
	}

	det, err = engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerWebhook,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, det.Status)
	assert.Equal(t, 4, gateway.StatusCalls(), "webhook trigger queries once")
	assert.Equal(t, domain.OrderPaid, store.get(testRef).Status)
	assert.Len(t, publisher.Published(), 1)
}

func TestConfirm_FailedPersistsAuditRow(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		status := completedStatus()
		status.StatusDescription = "Failed"
		return status, nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerWebhook,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, det.Status)
	assert.Equal(t, domain.OrderFailed, store.get(testRef).Status)
	assert.Empty(t, publisher.Published(), "failed orders emit no side effects")
}

func TestConfirm_UnknownStatusLeavesNoTrace(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		status := completedStatus()
		status.StatusDescription = "REVERSED"
		return status, nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		TrackingID:     testTracking,
		Trigger:        TriggerWebhook,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusUnknown, det.Status)
	assert.Equal(t, domain.OrderPending, store.get(testRef).Status)
	assert.Zero(t, store.finalizes())
}

func TestConfirm_WebhookWithoutTrackingIDUsesStoredPendingRow(t *testing.T) {
	store := newMemStore()
	seedPending(store)
	var queried string
	gateway := pesapal.NewMock()
	gateway.GetTransactionStatusFunc = func(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
		queried = trackingID
		return completedStatus(), nil
	}
	publisher := events.NewMockPublisher()
	engine := newTestEngine(store, gateway, publisher)

	det, err := engine.Confirm(context.Background(), ConfirmParams{
		OrderReference: testRef,
		Trigger:        TriggerWebhook,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, det.Status)
	assert.Equal(t, testTracking, queried)
}

func TestConfirm_MissingReference(t *testing.T) {
	engine := newTestEngine(newMemStore(), pesapal.NewMock(), events.NewMockPublisher())

	_, err := engine.Confirm(context.Background(), ConfirmParams{TrackingID: testTracking})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestConfirm_NoRowAndNoTrackingID(t *testing.T) {
	engine := newTestEngine(newMemStore(), pesapal.NewMock(), events.NewMockPublisher())

	_, err := engine.Confirm(context.Background(), ConfirmParams{OrderReference: testRef, Trigger: TriggerWebhook})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
