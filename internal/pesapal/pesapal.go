// Package pesapal wraps the Pesapal API 3.0 hosted-payment endpoints:
// token issuance, IPN registration, order submission and transaction status.
// The client is pure request/response; the only process-wide state is the
// injected bearer-token cache.
package pesapal

import (
	"context"
	"time"
)

// Gateway defines the payment provider surface the rest of the application
// depends on. The HTTP client implements it; tests use the Mock.
type Gateway interface {
	// Token returns a valid bearer token, re-authenticating only when the
	// cached token is near expiry.
	Token(ctx context.Context) (string, error)

	// RegisterIPN idempotently registers the notification endpoint the
	// provider will POST asynchronous payment results to.
	RegisterIPN(ctx context.Context, token string) (string, error)

	// SubmitOrder creates a hosted payment session and returns the provider
	// tracking id plus the redirect URL for the customer's browser.
	SubmitOrder(ctx context.Context, token, notificationID string, params SubmitOrderParams) (*OrderSession, error)

	// GetTransactionStatus fetches the authoritative status for a tracking id.
	GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error)
}

// Config holds provider credentials and endpoint configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://pay.pesapal.com/v3 or the
	// cybqa sandbox root.
	BaseURL string

	ConsumerKey    string
	ConsumerSecret string

	// CallbackURL is where the provider redirects the customer's browser
	// after the hosted payment page.
	CallbackURL string

	// IPNURL is the server-to-server notification endpoint registered with
	// the provider.
	IPNURL string

	// Timeout bounds each HTTP call. Defaults to 30s.
	Timeout time.Duration
}

// BillingAddress identifies the paying customer to the provider.
type BillingAddress struct {
	Email       string
	PhoneNumber string
	CountryCode string
	FirstName   string
	LastName    string
	Line1       string
	Line2       string
	City        string
	State       string
	PostalCode  string
}

// SubmitOrderParams contains parameters for creating a hosted payment session.
type SubmitOrderParams struct {
	// OrderReference is the merchant-generated unique id for this checkout
	// attempt; the provider echoes it back as merchant_reference.
	OrderReference string

	Amount      float64
	Currency    string
	Description string

	BillingAddress BillingAddress
}

// OrderSession is the provider's response to a submitted order.
type OrderSession struct {
	// TrackingID is the provider-assigned correlation key for status queries.
	TrackingID string

	// MerchantReference echoes the submitted order reference.
	MerchantReference string

	// RedirectURL is the hosted payment page for the customer's browser.
	RedirectURL string
}

// TransactionStatus is the provider's authoritative view of a payment.
type TransactionStatus struct {
	// StatusDescription is the provider's free-text status. Map it with
	// domain.MapProviderStatus; values outside the known vocabulary are
	// expected and must not be treated as errors.
	StatusDescription string

	Amount           float64
	Currency         string
	PaymentMethod    string
	ConfirmationCode string
	PaymentAccount   string

	// MerchantReference echoes the order reference this tracking id was
	// submitted under. Callers must verify it matches before trusting the
	// status.
	MerchantReference string

	CreatedDate time.Time
	StatusCode  int
}
