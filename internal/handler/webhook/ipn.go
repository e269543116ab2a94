// Package webhook receives server-to-server payment notifications from the
// gateway. The ingress is deliberately forgiving: every well-formed delivery
// is acknowledged with 200 so the provider stops retrying, and the
// reconciliation engine decides what the notification actually means.
package webhook

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/middleware"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/service"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/telemetry"
)

// IPNHandler handles payment gateway notifications
type IPNHandler struct {
	engine   service.ReconcileService
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

// NewIPNHandler creates a new IPNHandler. metrics may be nil.
func NewIPNHandler(engine service.ReconcileService, metrics *telemetry.Metrics) *IPNHandler {
	return &IPNHandler{
		engine:   engine,
		metrics:  metrics,
		validate: validator.New(),
	}
}

type metadataItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ipnResult struct {
	MerchantRequestID string         `json:"merchantRequestId" validate:"required"`
	CheckoutRequestID string         `json:"checkoutRequestId"`
	ResultCode        int            `json:"resultCode"`
	ResultDesc        string         `json:"resultDesc"`
	MetadataItems     []metadataItem `json:"metadataItems"`
}

type ipnPayload struct {
	Result ipnResult `json:"result" validate:"required"`
}

type ipnAck struct {
	ResultCode int    `json:"resultCode"`
	ResultDesc string `json:"resultDesc"`
}

// HandleIPN processes one gateway notification. The response is always
// 200/Accepted: a processing failure is logged and counted, never surfaced,
// because the provider would otherwise retry a delivery we cannot use.
func (h *IPNHandler) HandleIPN(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context())

	defer func() {
		if h.metrics != nil {
			h.metrics.WebhookLatency.Observe(time.Since(start).Seconds())
		}
	}()

	ack := func() {
		handler.RespondJSON(w, http.StatusOK, ipnAck{ResultCode: 0, ResultDesc: "Accepted"})
	}

	var payload ipnPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Warn("discarding malformed gateway notification", "error", err)
		h.countReceived("failure")
		ack()
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		logger.Warn("discarding gateway notification without order reference", "error", err)
		h.countReceived("failure")
		ack()
		return
	}

	result := payload.Result
	logger.Info("gateway notification received",
		"order_reference", result.MerchantRequestID,
		"tracking_id", result.CheckoutRequestID,
		"result_code", result.ResultCode,
		"result_desc", result.ResultDesc,
		"metadata", flattenMetadata(result.MetadataItems),
	)

	det, err := h.engine.Confirm(r.Context(), service.ConfirmParams{
		OrderReference: result.MerchantRequestID,
		TrackingID:     result.CheckoutRequestID,
		Trigger:        service.TriggerWebhook,
	})
	if err != nil {
		logger.Error("failed to reconcile gateway notification",
			"order_reference", result.MerchantRequestID,
			"error", err,
		)
		telemetry.CaptureOrderError(err, result.MerchantRequestID, nil)
		h.countReceived("failure")
		if h.metrics != nil {
			h.metrics.WebhookFailed.Inc()
		}
		ack()
		return
	}

	logger.Info("gateway notification reconciled",
		"order_reference", result.MerchantRequestID,
		"status", det.Status,
	)
	h.countReceived("success")
	ack()
}

func (h *IPNHandler) countReceived(result string) {
	if h.metrics != nil {
		h.metrics.WebhookReceived.WithLabelValues(result).Inc()
	}
}

func flattenMetadata(items []metadataItem) map[string]string {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Name] = it.Value
	}
	return out
}
