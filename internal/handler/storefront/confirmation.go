package storefront

import (
	"net/http"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/service"
)

// Client-facing payment status vocabulary. The gateway's wire statuses never
// leak to the browser.
const (
	clientCompleted = "completed"
	clientPending   = "pending"
	clientFailed    = "failed"
	clientInvalid   = "invalid"
	clientCancelled = "cancelled"
)

// ConfirmationHandler handles the customer's return from the hosted payment
// page.
type ConfirmationHandler struct {
	engine service.ReconcileService
}

// NewConfirmationHandler creates a new ConfirmationHandler.
func NewConfirmationHandler(engine service.ReconcileService) *ConfirmationHandler {
	return &ConfirmationHandler{engine: engine}
}

type confirmationResponse struct {
	OrderReference string  `json:"order_reference"`
	Status         string  `json:"status"`
	CanRetry       bool    `json:"can_retry"`
	Amount         float64 `json:"amount,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	Confirmation   string  `json:"confirmation_code,omitempty"`
}

// HandleConfirmation resolves the payment state for the redirect return.
// The provider appends OrderTrackingId and OrderMerchantReference to the
// callback URL; a missing tracking id means the customer abandoned the hosted
// page, which reads as cancelled rather than an error.
func (h *ConfirmationHandler) HandleConfirmation(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("OrderMerchantReference")
	trackingID := r.URL.Query().Get("OrderTrackingId")

	if reference == "" {
		handler.ErrorResponse(w, r, domain.Invalid("confirmation.get", "OrderMerchantReference is required"))
		return
	}

	if trackingID == "" {
		handler.RespondJSON(w, http.StatusOK, confirmationResponse{
			OrderReference: reference,
			Status:         clientCancelled,
			CanRetry:       true,
		})
		return
	}

	det, err := h.engine.Confirm(r.Context(), service.ConfirmParams{
		OrderReference: reference,
		TrackingID:     trackingID,
		Trigger:        service.TriggerRedirect,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := confirmationResponse{
		OrderReference: reference,
		Status:         clientStatus(det.Status),
	}
	resp.CanRetry = resp.Status == clientFailed || resp.Status == clientInvalid || resp.Status == clientCancelled

	if det.Order != nil {
		resp.Amount = det.Order.Amount
		resp.Currency = det.Order.Currency
		resp.Confirmation = det.Order.ConfirmationCode
	}

	handler.RespondJSON(w, http.StatusOK, resp)
}

// clientStatus maps the engine's verdict onto the client vocabulary. UNKNOWN
// reads as pending: the decision is still open and a later notification can
// settle it.
func clientStatus(status domain.PaymentStatus) string {
	switch status {
	case domain.StatusCompleted:
		return clientCompleted
	case domain.StatusFailed:
		return clientFailed
	case domain.StatusInvalid:
		return clientInvalid
	default:
		return clientPending
	}
}
