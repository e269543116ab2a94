// Package worker consumes finalized-order events and performs the side
// effects that ride them: stock decrements and operator notifications. Both
// are best-effort with gentle retry; a side-effect failure never touches the
// recorded order decision.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/events"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/notify"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// RetryMaxElapsed bounds the retry window for each side effect
	RetryMaxElapsed time.Duration

	// HandleTimeout bounds the processing of one event
	HandleTimeout time.Duration
}

// Worker subscribes to finalized-order events and runs their side effects.
type Worker struct {
	conn     *nats.Conn
	stock    domain.StockStore
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	config   Config

	sub *nats.Subscription
}

// NewWorker creates a new side-effect worker. metrics may be nil.
func NewWorker(
	conn *nats.Conn,
	stock domain.StockStore,
	notifier notify.Notifier,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	config Config,
) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.RetryMaxElapsed == 0 {
		config.RetryMaxElapsed = 30 * time.Second
	}
	if config.HandleTimeout == 0 {
		config.HandleTimeout = 2 * time.Minute
	}

	return &Worker{
		conn:     conn,
		stock:    stock,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		config:   config,
	}
}

// Start subscribes to the event stream and blocks until the context is
// cancelled, then drains the subscription.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"subject", events.SubjectOrderFinalized,
	)

	sub, err := events.Subscribe(w.conn, w.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to order events: %w", err)
	}
	w.sub = sub

	<-ctx.Done()

	w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
	if err := sub.Drain(); err != nil {
		w.logger.Error("failed to drain subscription", "error", err)
	}
	return ctx.Err()
}

// handle runs the side effects for one finalized order. Each effect fails
// independently: a stock failure does not block the notification.
func (w *Worker) handle(event events.OrderFinalized) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.HandleTimeout)
	defer cancel()

	logger := w.logger.With(
		"worker_id", w.config.WorkerID,
		"order_reference", event.OrderReference,
	)
	logger.Info("processing finalized order", "status", event.Status, "items", len(event.Items))

	w.decrementStock(ctx, logger, event)
	w.notifyOperator(ctx, logger, event)
}

func (w *Worker) decrementStock(ctx context.Context, logger *slog.Logger, event events.OrderFinalized) {
	if len(event.Items) == 0 {
		return
	}

	err := w.withRetry(ctx, func() error {
		err := w.stock.DecrementStock(ctx, event.Items)
		if errors.Is(err, domain.ErrInsufficientStock) {
			// Oversold; retrying cannot fix it, the operator has to.
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil {
		logger.Error("failed to decrement stock", "error", err)
		telemetry.CaptureOrderError(err, event.OrderReference, nil)
		if w.metrics != nil {
			w.metrics.StockDecrementFailed.Inc()
		}
		return
	}
	logger.Info("stock decremented", "items", len(event.Items))
}

func (w *Worker) notifyOperator(ctx context.Context, logger *slog.Logger, event events.OrderFinalized) {
	summary := notify.OrderSummary{
		OrderReference:   event.OrderReference,
		Status:           event.Status,
		Amount:           event.Amount,
		Currency:         event.Currency,
		PaymentMethod:    event.PaymentMethod,
		ConfirmationCode: event.ConfirmationCode,
		CustomerID:       event.CustomerID,
		ShippingAddress:  event.ShippingAddress,
		ItemCount:        len(event.Items),
		FinalizedAt:      event.FinalizedAt,
	}

	err := w.withRetry(ctx, func() error {
		return w.notifier.Notify(ctx, summary)
	})
	if err != nil {
		logger.Error("failed to send order notification", "error", err)
		telemetry.CaptureOrderError(err, event.OrderReference, nil)
		if w.metrics != nil {
			w.metrics.NotificationsFailed.Inc()
		}
		return
	}
	if w.metrics != nil {
		w.metrics.NotificationsSent.Inc()
	}
}

// withRetry runs op under exponential backoff bounded by RetryMaxElapsed and
// the context.
func (w *Worker) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = w.config.RetryMaxElapsed

	// A default InitialInterval larger than the elapsed budget would stop
	// the policy before the first retry.
	if interval := w.config.RetryMaxElapsed / 10; interval < policy.InitialInterval {
		policy.InitialInterval = interval
	}

	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}
