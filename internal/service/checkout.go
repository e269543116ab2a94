package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/cms"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/pesapal"
)

// CartItem is one requested line in a checkout.
type CartItem struct {
	ProductID string
	Quantity  int32
}

// StartCheckoutParams contains parameters for starting a checkout.
type StartCheckoutParams struct {
	CustomerID      string
	Items           []CartItem
	Currency        string
	ShippingAddress string
	Billing         pesapal.BillingAddress
}

// CheckoutSession is the hosted payment session handed to the customer.
type CheckoutSession struct {
	OrderReference string
	TrackingID     string
	RedirectURL    string
	Amount         float64
	Currency       string
}

// CheckoutService provides business logic for starting a checkout.
type CheckoutService interface {
	// StartCheckout snapshots the cart, records a pending order and creates a
	// hosted payment session with the gateway.
	StartCheckout(ctx context.Context, params StartCheckoutParams) (*CheckoutSession, error)
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	store    domain.OrderStore
	gateway  pesapal.Gateway
	catalog  cms.ContentSource
	logger   *slog.Logger
	currency string

	// IPN registration is idempotent with the provider; the id is cached for
	// the life of the process after the first successful registration.
	ipnMu sync.Mutex
	ipnID string
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(
	store domain.OrderStore,
	gateway pesapal.Gateway,
	catalog cms.ContentSource,
	logger *slog.Logger,
	defaultCurrency string,
) CheckoutService {
	if defaultCurrency == "" {
		defaultCurrency = "KES"
	}
	return &checkoutService{
		store:    store,
		gateway:  gateway,
		catalog:  catalog,
		logger:   logger,
		currency: defaultCurrency,
	}
}

// StartCheckout snapshots the cart, records a pending order and creates a
// hosted payment session with the gateway.
func (s *checkoutService) StartCheckout(ctx context.Context, params StartCheckoutParams) (*CheckoutSession, error) {
	if params.CustomerID == "" {
		return nil, ErrMissingCustomer
	}
	if len(params.Items) == 0 {
		return nil, ErrCartEmpty
	}

	currency := params.Currency
	if currency == "" {
		currency = s.currency
	}

	items, total, err := s.snapshotCart(ctx, params.Items)
	if err != nil {
		return nil, err
	}

	reference := newOrderReference()

	token, err := s.gateway.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with gateway: %w", err)
	}

	ipnID, err := s.notificationID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to register notification endpoint: %w", err)
	}

	session, err := s.gateway.SubmitOrder(ctx, token, ipnID, pesapal.SubmitOrderParams{
		OrderReference: reference,
		Amount:         total,
		Currency:       currency,
		Description:    orderDescription(items),
		BillingAddress: params.Billing,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit order %s: %w", reference, err)
	}

	order := &domain.Order{
		OrderReference:  reference,
		TrackingID:      session.TrackingID,
		Status:          domain.OrderPending,
		Amount:          total,
		Currency:        currency,
		CustomerID:      params.CustomerID,
		ShippingAddress: params.ShippingAddress,
		Items:           items,
	}

	if _, err := s.store.CreatePending(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to record pending order %s: %w", reference, err)
	}

	s.logger.Info("checkout started",
		"order_reference", reference,
		"tracking_id", session.TrackingID,
		"amount", total,
		"currency", currency,
		"items", len(items),
	)

	return &CheckoutSession{
		OrderReference: reference,
		TrackingID:     session.TrackingID,
		RedirectURL:    session.RedirectURL,
		Amount:         total,
		Currency:       currency,
	}, nil
}

// snapshotCart resolves each cart line against the catalog and copies name,
// price and image into the order. Later catalog edits never change a placed
// order.
func (s *checkoutService) snapshotCart(ctx context.Context, cart []CartItem) ([]domain.LineItem, float64, error) {
	items := make([]domain.LineItem, 0, len(cart))
	var total float64

	for _, line := range cart {
		if line.Quantity <= 0 {
			return nil, 0, domain.Errorf(domain.EINVALID, "", "Invalid quantity for product %s", line.ProductID)
		}

		product, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			if domain.ErrorCode(err) == domain.ENOTFOUND {
				return nil, 0, ErrProductUnavailable
			}
			return nil, 0, fmt.Errorf("failed to load product %s: %w", line.ProductID, err)
		}
		if !product.InStock {
			return nil, 0, ErrProductUnavailable
		}

		items = append(items, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			ImageRef:  product.ImageURL,
		})
		total += float64(line.Quantity) * product.Price
	}

	return items, total, nil
}

func (s *checkoutService) notificationID(ctx context.Context, token string) (string, error) {
	s.ipnMu.Lock()
	defer s.ipnMu.Unlock()

	if s.ipnID != "" {
		return s.ipnID, nil
	}

	id, err := s.gateway.RegisterIPN(ctx, token)
	if err != nil {
		return "", err
	}
	s.ipnID = id
	return id, nil
}

// newOrderReference generates the merchant reference, e.g. UDL-20250301-9f3c21ab.
func newOrderReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("UDL-%s-%s", time.Now().UTC().Format("20060102"), id)
}

func orderDescription(items []domain.LineItem) string {
	var count int32
	for _, it := range items {
		count += it.Quantity
	}
	if count == 1 {
		return "Uptime Decor Lights order, 1 item"
	}
	return fmt.Sprintf("Uptime Decor Lights order, %d items", count)
}
