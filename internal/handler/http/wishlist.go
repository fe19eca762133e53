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

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	wishlist *engine.Wishlist
	sessions *session.Store
	logger   *slog.Logger
}

// NewWishlistHandler creates a wishlist HTTP handler.
func NewWishlistHandler(wishlist *engine.Wishlist, sessions *session.Store, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlist: wishlist,
		sessions: sessions,
		logger:   logger,
	}
}

// AddEntryRequest is the JSON request body for adding a product to the wishlist.
type AddEntryRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// List handles GET /api/v1/wishlist.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.wishlist.Entries()
	params := pagination.FromRequest(r)
	page := pagination.Slice(entries, params)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: pagination.NewResult(page, len(entries), params),
	})
}

// AddItem handles POST /api/v1/wishlist/items.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.wishlist.Add(r.Context(), req.ProductID); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"wishlisted": true, "count": h.wishlist.Count()},
	})
}

// RemoveItem handles DELETE /api/v1/wishlist/items/{productId}.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required"), h.logger)
		return
	}

	if err := h.wishlist.Remove(r.Context(), productID); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"wishlisted": false, "count": h.wishlist.Count()},
	})
}

// Toggle handles POST /api/v1/wishlist/items/{productId}/toggle. The branch
// is decided on local state once the per-product guard key is held.
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required"), h.logger)
		return
	}

	result, err := h.wishlist.Toggle(r.Context(), productID)
	if err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Sync handles POST /api/v1/wishlist/sync: a full refetch from the commerce API.
func (h *WishlistHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.wishlist.FetchAll(r.Context()); err != nil {
		writeEngineError(w, r, err, h.sessions, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"count": h.wishlist.Count()},
	})
}
