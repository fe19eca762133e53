package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velora/storefront/internal/engine"
	"github.com/velora/storefront/internal/session"
	apperrors "github.com/velora/storefront/pkg/errors"
	"github.com/velora/storefront/pkg/httputil"
	"github.com/velora/storefront/pkg/pagination"
	"github.com/velora/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	cart     *engine.Cart
	sessions *session.Store
	logger   *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(cart *engine.Cart, sessions *session.Store, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:     cart,
		sessions: sessions,
		logger:   logger,
	}
}

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// UpdateQuantityRequest is the JSON request body for setting a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// List handles GET /api/v1/cart. The local snapshot is paged in memory.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	lines := h.cart.Lines()
	params := pagination.FromRequest(r)
	page := pagination.Slice(lines, params)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: pagination.NewResult(page, len(lines), params),
	})
}

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.cart.Add(r.Context(), req.ProductID); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"in_cart": true, "count": h.cart.Count()},
	})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productId}.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required"), h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.cart.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"quantity": req.Quantity},
	})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required"), h.logger)
		return
	}

	if err := h.cart.Remove(r.Context(), productID); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"in_cart": false, "count": h.cart.Count()},
	})
}

// Sync handles POST /api/v1/cart/sync: a full refetch from the commerce API.
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.FetchAll(r.Context()); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"count": h.cart.Count()},
	})
}
