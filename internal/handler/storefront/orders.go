package storefront

import (
	"net/http"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/auth"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/service"
)

// OrderHandler serves the authenticated customer's order history.
type OrderHandler struct {
	orders service.OrderService
	engine service.ReconcileService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders service.OrderService, engine service.ReconcileService) *OrderHandler {
	return &OrderHandler{orders: orders, engine: engine}
}

type orderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ImageRef  string  `json:"image_ref,omitempty"`
}

type orderResponse struct {
	OrderReference   string              `json:"order_reference"`
	Status           string              `json:"status"`
	Amount           float64             `json:"amount"`
	Currency         string              `json:"currency"`
	PaymentMethod    string              `json:"payment_method,omitempty"`
	ConfirmationCode string              `json:"confirmation_code,omitempty"`
	ShippingAddress  string              `json:"shipping_address,omitempty"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
}

// HandleList returns the customer's orders, newest first.
func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		handler.ErrorResponse(w, r, domain.Unauthorized("orders.list", "Authentication required"))
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), identity.CustomerID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{"orders": out})
}

// HandleDetail returns one of the customer's orders by reference.
func (h *OrderHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		handler.ErrorResponse(w, r, domain.Unauthorized("orders.get", "Authentication required"))
		return
	}

	order, err := h.orders.GetOrder(r.Context(), identity.CustomerID, r.PathValue("reference"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, toOrderResponse(order))
}

// HandleRecheck re-runs payment reconciliation for one of the customer's
// orders. A terminal order returns the recorded decision immediately; a
// pending one triggers a single provider query.
func (h *OrderHandler) HandleRecheck(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		handler.ErrorResponse(w, r, domain.Unauthorized("orders.recheck", "Authentication required"))
		return
	}

	// Ownership check before touching the engine.
	order, err := h.orders.GetOrder(r.Context(), identity.CustomerID, r.PathValue("reference"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	det, err := h.engine.Confirm(r.Context(), service.ConfirmParams{
		OrderReference: order.OrderReference,
		TrackingID:     order.TrackingID,
		Trigger:        service.TriggerManual,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := map[string]any{
		"order_reference": det.OrderReference,
		"payment_status":  string(det.Status),
	}
	if det.Order != nil {
		resp["order"] = toOrderResponse(det.Order)
	}
	handler.RespondJSON(w, http.StatusOK, resp)
}

func toOrderResponse(order *domain.Order) orderResponse {
	items := make([]orderItemResponse, len(order.Items))
	for i, it := range order.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			ImageRef:  it.ImageRef,
		}
	}
	return orderResponse{
		OrderReference:   order.OrderReference,
		Status:           string(order.Status),
		Amount:           order.Amount,
		Currency:         order.Currency,
		PaymentMethod:    order.PaymentMethod,
		ConfirmationCode: order.ConfirmationCode,
		ShippingAddress:  order.ShippingAddress,
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}
