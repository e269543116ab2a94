package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/events"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/pesapal"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/retry"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/telemetry"
)

// Trigger identifies which entry point asked for reconciliation. The redirect
// return polls because the customer is waiting on the confirmation page; the
// webhook and manual paths query once.
type Trigger string

const (
	TriggerRedirect Trigger = "redirect"
	TriggerWebhook  Trigger = "webhook"
	TriggerManual   Trigger = "manual"
)

const (
	defaultPollAttempts = 5
	defaultPollDelay    = 2 * time.Second
)

// ConfirmParams identifies the payment to reconcile.
type ConfirmParams struct {
	// OrderReference is the merchant-generated idempotency key.
	OrderReference string

	// TrackingID is the provider correlation key. May be empty on webhook
	// re-delivery; the stored pending row's tracking id is used as fallback.
	TrackingID string

	Trigger Trigger
}

// Determination is the engine's verdict for one reconciliation request.
type Determination struct {
	OrderReference string
	Status         domain.PaymentStatus

	// Order is the stored record when the verdict is backed by a durable row.
	Order *domain.Order
}

// ReconcileService resolves the authoritative payment state for an order and
// records terminal decisions at most once.
type ReconcileService interface {
	Confirm(ctx context.Context, params ConfirmParams) (*Determination, error)
}

// reconcileService implements ReconcileService.
type reconcileService struct {
	store     domain.OrderStore
	gateway   pesapal.Gateway
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	pollAttempts int
	pollDelay    time.Duration

	// Per-reference serialization within this process. The database unique
	// constraint remains the authoritative guard; this only avoids redundant
	// concurrent provider calls for the same order. Entries are refcounted
	// and evicted once the last holder releases.
	locksMu sync.Mutex
	locks   map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

// ReconcileConfig tunes the redirect-triggered polling loop.
type ReconcileConfig struct {
	PollAttempts int
	PollDelay    time.Duration
}

// NewReconcileService creates the reconciliation engine. metrics may be nil.
func NewReconcileService(
	store domain.OrderStore,
	gateway pesapal.Gateway,
	publisher events.Publisher,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	cfg ReconcileConfig,
) ReconcileService {
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = defaultPollAttempts
	}
	if cfg.PollDelay <= 0 {
		cfg.PollDelay = defaultPollDelay
	}

	return &reconcileService{
		store:        store,
		gateway:      gateway,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
		pollAttempts: cfg.PollAttempts,
		pollDelay:    cfg.PollDelay,
		locks:        make(map[string]*refLock),
	}
}

// Confirm resolves the payment state for one order reference. Re-entry with a
// reference that already holds a terminal decision returns the recorded
// decision without touching the provider.
func (s *reconcileService) Confirm(ctx context.Context, params ConfirmParams) (*Determination, error) {
	if params.OrderReference == "" {
		return nil, ErrMissingReference
	}

	s.lockRef(params.OrderReference)
	defer s.unlockRef(params.OrderReference)

	determination, err := s.confirmLocked(ctx, params)
	if err == nil && s.metrics != nil {
		s.metrics.ReconcileRuns.WithLabelValues(string(params.Trigger), string(determination.Status)).Inc()
	}
	return determination, err
}

func (s *reconcileService) confirmLocked(ctx context.Context, params ConfirmParams) (*Determination, error) {
	existing, err := s.store.GetByReference(ctx, params.OrderReference)
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to load order %s: %w", params.OrderReference, err)
	}

	if existing != nil && existing.Status.Terminal() {
		if s.metrics != nil {
			s.metrics.DuplicateFinalizeAttempts.Inc()
		}
		s.logger.Info("order already finalized, returning recorded decision",
			"order_reference", params.OrderReference,
			"status", existing.Status,
			"trigger", params.Trigger,
		)
		return recordedDetermination(existing), nil
	}

	trackingID := params.TrackingID
	if trackingID == "" && existing != nil {
		trackingID = existing.TrackingID
	}
	if trackingID == "" {
		return nil, ErrMissingTrackingID
	}

	status, err := s.fetchStatus(ctx, trackingID, params.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction status for %s: %w", params.OrderReference, err)
	}

	if status.MerchantReference != params.OrderReference {
		if s.metrics != nil {
			s.metrics.CorrelationMismatches.Inc()
		}
		s.logger.Warn("provider response does not correlate with requested order",
			"order_reference", params.OrderReference,
			"echoed_reference", status.MerchantReference,
			"tracking_id", trackingID,
		)
		return &Determination{
			OrderReference: params.OrderReference,
			Status:         domain.StatusInvalid,
		}, nil
	}

	verdict := domain.MapProviderStatus(status.StatusDescription)

	switch verdict {
	case domain.StatusCompleted:
		return s.finalize(ctx, params.OrderReference, trackingID, existing, status, verdict)

	case domain.StatusFailed, domain.StatusInvalid:
		// Audit row, best-effort. A store failure here must not mask the
		// provider's verdict.
		det, err := s.finalize(ctx, params.OrderReference, trackingID, existing, status, verdict)
		if err != nil {
			s.logger.Error("failed to record failed payment",
				"order_reference", params.OrderReference,
				"status", verdict,
				"error", err,
			)
			telemetry.CaptureOrderError(err, params.OrderReference, nil)
			return &Determination{OrderReference: params.OrderReference, Status: verdict}, nil
		}
		return det, nil

	default:
		// PENDING and UNKNOWN leave no trace; a later webhook or poll can
		// still finalize.
		return &Determination{OrderReference: params.OrderReference, Status: verdict}, nil
	}
}

// fetchStatus queries the gateway, polling with backoff when the customer is
// waiting on the redirect return.
func (s *reconcileService) fetchStatus(ctx context.Context, trackingID string, trigger Trigger) (*pesapal.TransactionStatus, error) {
	if trigger != TriggerRedirect {
		return s.statusCall(ctx, trackingID)
	}

	return retry.PollUntilTerminal(ctx,
		func(ctx context.Context) (*pesapal.TransactionStatus, error) {
			return s.statusCall(ctx, trackingID)
		},
		func(status *pesapal.TransactionStatus) bool {
			return status != nil && domain.MapProviderStatus(status.StatusDescription).Terminal()
		},
		s.pollAttempts,
		s.pollDelay,
	)
}

func (s *reconcileService) statusCall(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
	start := time.Now()
	status, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if s.metrics != nil {
		s.metrics.GatewayLatency.WithLabelValues("get_transaction_status").Observe(time.Since(start).Seconds())
	}
	return status, err
}

// finalize records the terminal decision and, for the paid path, publishes
// the finalized-order event when this invocation won the insert.
func (s *reconcileService) finalize(
	ctx context.Context,
	reference, trackingID string,
	existing *domain.Order,
	status *pesapal.TransactionStatus,
	verdict domain.PaymentStatus,
) (*Determination, error) {
	order := buildFinalizeRecord(reference, trackingID, existing, status, verdict)

	outcome, err := s.store.Finalize(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize order %s: %w", reference, err)
	}

	if outcome == domain.OutcomeAlreadyExists {
		if s.metrics != nil {
			s.metrics.DuplicateFinalizeAttempts.Inc()
		}
		recorded, err := s.store.GetByReference(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("failed to reload finalized order %s: %w", reference, err)
		}
		return recordedDetermination(recorded), nil
	}

	if s.metrics != nil {
		s.metrics.OrdersFinalized.WithLabelValues(string(order.Status)).Inc()
		if verdict == domain.StatusCompleted {
			s.metrics.OrderValue.WithLabelValues(order.Currency).Observe(order.Amount)
		}
	}

	if verdict == domain.StatusCompleted {
		s.publishFinalized(ctx, order)
	}

	return &Determination{OrderReference: reference, Status: verdict, Order: order}, nil
}

// publishFinalized emits the side-effect event. Failures are logged; the
// finalize decision is already durable and is never reversed.
func (s *reconcileService) publishFinalized(ctx context.Context, order *domain.Order) {
	event := events.OrderFinalized{
		OrderReference:   order.OrderReference,
		TrackingID:       order.TrackingID,
		Status:           string(order.Status),
		Amount:           order.Amount,
		Currency:         order.Currency,
		PaymentMethod:    order.PaymentMethod,
		ConfirmationCode: order.ConfirmationCode,
		CustomerID:       order.CustomerID,
		ShippingAddress:  order.ShippingAddress,
		Items:            order.Items,
		FinalizedAt:      time.Now().UTC(),
	}

	if err := s.publisher.PublishOrderFinalized(ctx, event); err != nil {
		s.logger.Error("failed to publish order finalized event",
			"order_reference", order.OrderReference,
			"error", err,
		)
		telemetry.CaptureOrderError(err, order.OrderReference, nil)
	}
}

func (s *reconcileService) lockRef(reference string) {
	s.locksMu.Lock()
	lock, ok := s.locks[reference]
	if !ok {
		lock = &refLock{}
		s.locks[reference] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	lock.mu.Lock()
}

func (s *reconcileService) unlockRef(reference string) {
	s.locksMu.Lock()
	lock := s.locks[reference]
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, reference)
	}
	s.locksMu.Unlock()

	lock.mu.Unlock()
}

// buildFinalizeRecord merges the pending row's checkout snapshot, when one
// exists, with the provider's payment metadata.
func buildFinalizeRecord(
	reference, trackingID string,
	existing *domain.Order,
	status *pesapal.TransactionStatus,
	verdict domain.PaymentStatus,
) *domain.Order {
	order := &domain.Order{
		OrderReference: reference,
		TrackingID:     trackingID,
		Status:         domain.OrderStatusFor(verdict),

		Amount:           status.Amount,
		Currency:         status.Currency,
		PaymentMethod:    status.PaymentMethod,
		ConfirmationCode: status.ConfirmationCode,
		PaymentAccount:   status.PaymentAccount,
		PaymentDate:      status.CreatedDate,
	}

	if existing != nil {
		order.CustomerID = existing.CustomerID
		order.ShippingAddress = existing.ShippingAddress
		order.Items = existing.Items
		if order.Amount == 0 {
			order.Amount = existing.Amount
		}
		if order.Currency == "" {
			order.Currency = existing.Currency
		}
	}

	return order
}

// recordedDetermination maps a stored terminal row back onto the payment
// status vocabulary.
func recordedDetermination(order *domain.Order) *Determination {
	status := domain.StatusFailed
	if order.Status == domain.OrderPaid {
		status = domain.StatusCompleted
	}
	return &Determination{
		OrderReference: order.OrderReference,
		Status:         status,
		Order:          order,
	}
}
