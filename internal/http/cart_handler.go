package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kombee/eshop-storefront/internal/cart"
	"github.com/kombee/eshop-storefront/internal/domain"
)

type CartHandler struct {
	carts   *cart.Manager
	timeout time.Duration
}

func NewCartHandler(carts *cart.Manager, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items      []domain.CartLine `json:"items"`
	TotalCount int               `json:"total_count"`
	TotalPrice float64           `json:"total_price"`
}

func (h *CartHandler) cartResponse(ctx context.Context, visitorID string) CartResponse {
	return CartResponse{
		Items:      h.carts.Items(ctx, visitorID),
		TotalCount: h.carts.TotalCount(ctx, visitorID),
		TotalPrice: h.carts.TotalPrice(ctx, visitorID),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx, visitorID))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	err := h.carts.AddItem(ctx, visitorID, domain.CartLine{
		ID:       req.ID,
		Title:    req.Title,
		Image:    req.Image,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		// persistence warning; the in-memory cart already holds the item
		log.Printf("request %s: %v", getRequestID(r.Context()), err)
	}

	respondJSON(w, http.StatusCreated, h.cartResponse(ctx, visitorID))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	productID := chi.URLParam(r, "id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.UpdateQuantity(ctx, visitorID, productID, req.Quantity); err != nil {
		log.Printf("request %s: %v", getRequestID(r.Context()), err)
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx, visitorID))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	productID := chi.URLParam(r, "id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}

	if err := h.carts.RemoveItem(ctx, visitorID, productID); err != nil {
		log.Printf("request %s: %v", getRequestID(r.Context()), err)
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx, visitorID))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	if err := h.carts.Clear(ctx, visitorID); err != nil {
		log.Printf("request %s: %v", getRequestID(r.Context()), err)
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx, visitorID))
}
