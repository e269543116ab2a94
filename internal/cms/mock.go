package cms

import "context"

// Mock is a function-field test double for ContentSource.
type Mock struct {
	ProductFunc  func(ctx context.Context, id string) (*Product, error)
	ProductsFunc func(ctx context.Context) ([]Product, error)
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Product(ctx context.Context, id string) (*Product, error) {
	if m.ProductFunc != nil {
		return m.ProductFunc(ctx, id)
	}
	return nil, ErrProductNotFound
}

func (m *Mock) Products(ctx context.Context) ([]Product, error) {
	if m.ProductsFunc != nil {
		return m.ProductsFunc(ctx)
	}
	return nil, nil
}
