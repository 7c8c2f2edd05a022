package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kombee/eshop-storefront/internal/saleor"
)

// Catalog is the slice of the catalog service the handler needs.
type Catalog interface {
	Listing(ctx context.Context) ([]saleor.Product, error)
	Product(ctx context.Context, id string) (*saleor.Product, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(catalog Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductResponse struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Image             string  `json:"image"`
	Price             float64 `json:"price"`
	UndiscountedPrice float64 `json:"undiscounted_price,omitempty"`
	Description       string  `json:"description,omitempty"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p saleor.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		Title:             p.Title,
		Image:             p.Image,
		Price:             p.Price,
		UndiscountedPrice: p.UndiscountedPrice,
		Description:       p.Description,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	listing, err := h.catalog.Listing(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "upstream_error", "product catalog unavailable")
		return
	}

	products := make([]ProductResponse, len(listing))
	for i, p := range listing {
		products[i] = toProductResponse(p)
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	p, err := h.catalog.Product(ctx, id)
	if err != nil {
		if errors.Is(err, saleor.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusBadGateway, "upstream_error", "product catalog unavailable")
		return
	}

	respondJSON(w, http.StatusOK, toProductResponse(*p))
}
