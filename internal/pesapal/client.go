package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client is the HTTP implementation of Gateway.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens *TokenCache
	logger *slog.Logger
}

// Compile-time check that Client implements Gateway.
var _ Gateway = (*Client)(nil)

// NewClient creates a Pesapal API client. The token cache is injected so its
// lifetime is explicit (one per process, shared across request handlers).
func NewClient(cfg Config, tokens *TokenCache, logger *slog.Logger) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("pesapal: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		logger: logger,
	}, nil
}

// providerError is the error object embedded in every provider response.
type providerError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *providerError) present() bool {
	return e != nil && (e.Code != "" || e.Message != "")
}

type authResponse struct {
	Token      string         `json:"token"`
	ExpiryDate string         `json:"expiryDate"`
	Error      *providerError `json:"error"`
	Status     string         `json:"status"`
}

type registerIPNRequest struct {
	URL                 string `json:"url"`
	IPNNotificationType string `json:"ipn_notification_type"`
}

type registerIPNResponse struct {
	IPNID  string         `json:"ipn_id"`
	URL    string         `json:"url"`
	Error  *providerError `json:"error"`
	Status string         `json:"status"`
}

type submitOrderRequest struct {
	ID             string              `json:"id"`
	Currency       string              `json:"currency"`
	Amount         float64             `json:"amount"`
	Description    string              `json:"description"`
	CallbackURL    string              `json:"callback_url"`
	NotificationID string              `json:"notification_id"`
	BillingAddress wireBillingAddress  `json:"billing_address"`
}

type wireBillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Line1        string `json:"line_1,omitempty"`
	Line2        string `json:"line_2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type submitOrderResponse struct {
	OrderTrackingID   string         `json:"order_tracking_id"`
	MerchantReference string         `json:"merchant_reference"`
	RedirectURL       string         `json:"redirect_url"`
	Error             *providerError `json:"error"`
	Status            string         `json:"status"`
}

type transactionStatusResponse struct {
	PaymentMethod            string         `json:"payment_method"`
	Amount                   float64        `json:"amount"`
	CreatedDate              string         `json:"created_date"`
	ConfirmationCode         string         `json:"confirmation_code"`
	PaymentStatusDescription string         `json:"payment_status_description"`
	PaymentAccount           string         `json:"payment_account"`
	MerchantReference        string         `json:"merchant_reference"`
	Currency                 string         `json:"currency"`
	StatusCode               int            `json:"status_code"`
	Error                    *providerError `json:"error"`
	Status                   string         `json:"status"`
}

// Token returns a valid bearer token, refreshing through the cache when the
// previous one is near expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.Get(ctx, c.authenticate)
}

func (c *Client) authenticate(ctx context.Context) (string, time.Time, error) {
	body := map[string]string{
		"consumer_key":    c.cfg.ConsumerKey,
		"consumer_secret": c.cfg.ConsumerSecret,
	}

	var resp authResponse
	if err := c.post(ctx, "/api/Auth/RequestToken", "", body, &resp); err != nil {
		return "", time.Time{}, &AuthError{Message: "token request failed", Err: err}
	}
	if resp.Error.present() {
		return "", time.Time{}, &AuthError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if resp.Token == "" {
		return "", time.Time{}, &AuthError{Message: "provider returned an empty token"}
	}

	expiry := parseProviderTime(resp.ExpiryDate)
	if expiry.IsZero() {
		// Provider contract says tokens last 5 minutes; fall back to that.
		expiry = time.Now().Add(5 * time.Minute)
	}

	c.logger.Debug("pesapal token refreshed", "expiry", expiry)
	return resp.Token, expiry, nil
}

// RegisterIPN registers (or re-registers) the notification endpoint.
// The provider treats registration of an already-known URL as a retrieval,
// so calling this on every startup is safe.
func (c *Client) RegisterIPN(ctx context.Context, token string) (string, error) {
	if c.cfg.IPNURL == "" {
		return "", ErrMissingIPNURL
	}

	req := registerIPNRequest{URL: c.cfg.IPNURL, IPNNotificationType: "POST"}

	var resp registerIPNResponse
	if err := c.post(ctx, "/api/URLSetup/RegisterIPN", token, req, &resp); err != nil {
		return "", err
	}
	if resp.Error.present() {
		return "", &GatewayError{Op: "register_ipn", Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if resp.IPNID == "" {
		return "", &GatewayError{Op: "register_ipn", Message: "provider returned no ipn_id"}
	}

	return resp.IPNID, nil
}

// SubmitOrder creates a hosted payment session for the given order reference.
func (c *Client) SubmitOrder(ctx context.Context, token, notificationID string, params SubmitOrderParams) (*OrderSession, error) {
	if c.cfg.CallbackURL == "" {
		return nil, ErrMissingCallbackURL
	}
	if params.OrderReference == "" {
		return nil, fmt.Errorf("pesapal: order reference is required")
	}

	req := submitOrderRequest{
		ID:             params.OrderReference,
		Currency:       params.Currency,
		Amount:         params.Amount,
		Description:    params.Description,
		CallbackURL:    c.cfg.CallbackURL,
		NotificationID: notificationID,
		BillingAddress: wireBillingAddress{
			EmailAddress: params.BillingAddress.Email,
			PhoneNumber:  params.BillingAddress.PhoneNumber,
			CountryCode:  params.BillingAddress.CountryCode,
			FirstName:    params.BillingAddress.FirstName,
			LastName:     params.BillingAddress.LastName,
			Line1:        params.BillingAddress.Line1,
			Line2:        params.BillingAddress.Line2,
			City:         params.BillingAddress.City,
			State:        params.BillingAddress.State,
			PostalCode:   params.BillingAddress.PostalCode,
		},
	}

	var resp submitOrderResponse
	if err := c.post(ctx, "/api/Transactions/SubmitOrderRequest", token, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error.present() {
		return nil, &GatewayError{Op: "submit_order", Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if resp.OrderTrackingID == "" || resp.RedirectURL == "" {
		return nil, &GatewayError{Op: "submit_order", Message: "provider returned an incomplete order session"}
	}

	return &OrderSession{
		TrackingID:        resp.OrderTrackingID,
		MerchantReference: resp.MerchantReference,
		RedirectURL:       resp.RedirectURL,
	}, nil
}

// GetTransactionStatus fetches the authoritative payment status for a
// tracking id. Unrecognized status descriptions are returned as-is; mapping
// to the known vocabulary is the caller's concern.
func (c *Client) GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error) {
	if trackingID == "" {
		return nil, ErrMissingTrackingID
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var resp transactionStatusResponse
	path := "/api/Transactions/GetTransactionStatus?orderTrackingId=" + trackingID
	if err := c.get(ctx, path, token, &resp); err != nil {
		return nil, err
	}
	if resp.Error.present() {
		return nil, &GatewayError{Op: "transaction_status", Code: resp.Error.Code, Message: resp.Error.Message}
	}

	return &TransactionStatus{
		StatusDescription: resp.PaymentStatusDescription,
		Amount:            resp.Amount,
		Currency:          resp.Currency,
		PaymentMethod:     resp.PaymentMethod,
		ConfirmationCode:  resp.ConfirmationCode,
		PaymentAccount:    resp.PaymentAccount,
		MerchantReference: resp.MerchantReference,
		CreatedDate:       parseProviderTime(resp.CreatedDate),
		StatusCode:        resp.StatusCode,
	}, nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pesapal: failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, token, bytes.NewReader(payload), out)
}

func (c *Client) get(ctx context.Context, path, token string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("pesapal: failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &TransportError{Op: method + " " + path, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// A revoked or expired token would otherwise keep failing until the
		// cache's own expiry; drop it so the next call re-authenticates.
		if token != "" {
			c.tokens.Invalidate()
		}
		return &AuthError{Message: fmt.Sprintf("provider rejected the bearer token (%s %s)", method, path)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pesapal: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("pesapal: failed to parse response: %w", err)
	}
	return nil
}

// parseProviderTime parses the provider's timestamp formats. Returns the zero
// time when the value is empty or unparseable; timestamps are metadata here,
// never control flow.
func parseProviderTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
