package storefront

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/auth"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/pesapal"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/service"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/telemetry"
)

// CheckoutHandler handles checkout requests
type CheckoutHandler struct {
	checkout service.CheckoutService
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler. metrics may be nil.
func NewCheckoutHandler(checkout service.CheckoutService, metrics *telemetry.Metrics) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		metrics:  metrics,
		validate: validator.New(),
	}
}

type checkoutItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
}

type checkoutBilling struct {
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	CountryCode string `json:"country_code"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Line1       string `json:"line_1"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
}

type checkoutRequest struct {
	Items           []checkoutItem  `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string          `json:"shipping_address" validate:"required"`
	Billing         checkoutBilling `json:"billing" validate:"required"`
	Currency        string          `json:"currency"`
}

type checkoutResponse struct {
	OrderReference string  `json:"order_reference"`
	RedirectURL    string  `json:"redirect_url"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

// HandleCheckout starts a checkout and returns the hosted payment redirect.
func (h *CheckoutHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	if h.metrics != nil {
		h.metrics.CheckoutStarted.Inc()
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		handler.ErrorResponse(w, r, domain.Unauthorized("checkout.start", "Authentication required"))
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countFailure("validation")
		handler.ErrorResponse(w, r, domain.Invalid("checkout.start", "Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.countFailure("validation")
		handler.ErrorResponse(w, r, domain.Invalid("checkout.start", "Missing or invalid checkout fields"))
		return
	}

	items := make([]service.CartItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CartItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	session, err := h.checkout.StartCheckout(r.Context(), service.StartCheckoutParams{
		CustomerID:      identity.CustomerID,
		Items:           items,
		Currency:        req.Currency,
		ShippingAddress: req.ShippingAddress,
		Billing: pesapal.BillingAddress{
			Email:       req.Billing.Email,
			PhoneNumber: req.Billing.PhoneNumber,
			CountryCode: req.Billing.CountryCode,
			FirstName:   req.Billing.FirstName,
			LastName:    req.Billing.LastName,
			Line1:       req.Billing.Line1,
			City:        req.Billing.City,
			PostalCode:  req.Billing.PostalCode,
		},
	})
	if err != nil {
		h.countFailure(failureReason(err))
		handler.ErrorResponse(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CheckoutSubmitted.WithLabelValues(session.Currency).Inc()
	}

	handler.RespondJSON(w, http.StatusOK, checkoutResponse{
		OrderReference: session.OrderReference,
		RedirectURL:    session.RedirectURL,
		Amount:         session.Amount,
		Currency:       session.Currency,
	})
}

func (h *CheckoutHandler) countFailure(reason string) {
	if h.metrics != nil {
		h.metrics.CheckoutFailed.WithLabelValues(reason).Inc()
	}
}

func failureReason(err error) string {
	switch domain.ErrorCode(err) {
	case domain.EINVALID, domain.ENOTFOUND:
		return "validation"
	case domain.EPAYMENT:
		return "gateway"
	default:
		return "store"
	}
}
