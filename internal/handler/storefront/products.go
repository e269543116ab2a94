package storefront

import (
	"net/http"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/cms"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/handler"
)

// ProductHandler serves the product catalog read-through from the CMS.
type ProductHandler struct {
	catalog cms.ContentSource
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog cms.ContentSource) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// HandleList returns all products.
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]any{"products": products})
}

// HandleDetail returns one product by id.
func (h *ProductHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Product(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, product)
}
