// Package handler adapts the checkout gateway and the catalog feed to HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/unseelie-shop/internal/domain/checkout"
)

// maxBodySize caps checkout request bodies.
const maxBodySize = 64 << 10

// CheckoutService creates hosted payment sessions.
type CheckoutService interface {
	CreateSession(ctx context.Context, req checkout.Request) (*checkout.Session, error)
}

// CatalogSource exposes the current catalog document as served bytes.
type CatalogSource interface {
	// Raw returns the encoded document, or nil when none is loaded.
	Raw() []byte
}

// Handler serves the storefront API.
type Handler struct {
	checkout CheckoutService
	catalog  CatalogSource
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(checkout CheckoutService, catalog CatalogSource) *Handler {
	return &Handler{
		checkout: checkout,
		catalog:  catalog,
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /data/products.json", h.Products)
}
