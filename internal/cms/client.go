package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

const defaultClientTimeout = 15 * time.Second

// Config holds the CMS query endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a thin HTTP client against the CMS query API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	const op = "cms.NewClient"

	if cfg.BaseURL == "" {
		return nil, domain.Config(op, "cms base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	const op = "cms.Client.Product"

	var product Product
	path := "/api/products/" + url.PathEscape(id)
	if err := c.get(ctx, op, path, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	const op = "cms.Client.Products"

	var products []Product
	if err := c.get(ctx, op, "/api/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "failed to build cms request", Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "cms request failed", Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &domain.Error{Code: domain.ENOTFOUND, Message: "product not found", Op: op, Err: ErrProductNotFound}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &domain.Error{
			Code:    domain.EINTERNAL,
			Message: fmt.Sprintf("cms responded with status %d", resp.StatusCode),
			Op:      op,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "failed to decode cms response", Op: op, Err: err}
	}
	return nil
}
