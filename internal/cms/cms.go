// Package cms reads product content from the headless CMS backing the
// storefront. The store never writes to the CMS; product names, prices and
// images are read at checkout time to snapshot line items.
package cms

import (
	"context"
	"errors"
)

// ErrProductNotFound is returned when the CMS has no product for the id.
var ErrProductNotFound = errors.New("cms: product not found")

// Product is the subset of CMS content the checkout flow needs.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
	InStock  bool    `json:"in_stock"`
}

// ContentSource exposes read-only product content.
type ContentSource interface {
	Product(ctx context.Context, id string) (*Product, error)
	Products(ctx context.Context) ([]Product, error)
}
