package http

import (
	"net/http"

	"github.com/velora/storefront/internal/engine"
	"github.com/velora/storefront/internal/session"
	"github.com/velora/storefront/pkg/httputil"
)

// BadgeHandler serves the header badge counts. Counts are always derived from
// the collections, so they drop to zero the instant the session ends.
type BadgeHandler struct {
	cart     *engine.Cart
	wishlist *engine.Wishlist
	sessions *session.Store
}

// NewBadgeHandler creates a badge HTTP handler.
func NewBadgeHandler(cart *engine.Cart, wishlist *engine.Wishlist, sessions *session.Store) *BadgeHandler {
	return &BadgeHandler{
		cart:     cart,
		wishlist: wishlist,
		sessions: sessions,
	}
}

// BadgeResponse is the JSON body for GET /api/v1/badges.
type BadgeResponse struct {
	Authenticated bool `json:"authenticated"`
	CartCount     int  `json:"cart_count"`
	WishlistCount int  `json:"wishlist_count"`
}

// Get handles GET /api/v1/badges.
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: BadgeResponse{
			Authenticated: h.sessions.Authenticated(),
			CartCount:     h.cart.Count(),
			WishlistCount: h.wishlist.Count(),
		},
	})
}
