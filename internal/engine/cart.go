// Package engine holds the cart and wishlist engines: the single owners of
// the locally held collections. Every mutation is gated by the operation
// guard, issued through the commerce gateway, and reconciled back into local
// state. Collection counts are always derived from the collections
// themselves, never tracked separately.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/velora/storefront/internal/domain"
	"github.com/velora/storefront/internal/guard"
	apperrors "github.com/velora/storefront/pkg/errors"
)

const cartCollection = "cart"

// cartFetchKey guards the full-cart load; per-product mutations use
// cartKey(productID) so add, remove and quantity updates for one product
// serialize against each other.
const cartFetchKey = "cart:fetch"

func cartKey(productID string) string {
	return "cart:" + productID
}

// CartGateway is the slice of the commerce API the cart engine needs.
type CartGateway interface {
	ListCart(ctx context.Context) ([]domain.CartLine, error)
	AddCartLine(ctx context.Context, productID string, quantity int) (domain.CartLine, error)
	UpdateCartLine(ctx context.Context, lineID string, quantity int) error
	DeleteCartLine(ctx context.Context, lineID string) error
}

// AuthState reports whether a session credential is currently held. Engines
// only read it; session ownership stays with the session store.
type AuthState interface {
	Authenticated() bool
}

// Cart owns the local cart collection.
type Cart struct {
	mu     sync.RWMutex
	lines  []domain.CartLine
	gw     CartGateway
	guard  *guard.Guard
	auth   AuthState
	logger *slog.Logger
}

// NewCart creates a cart engine.
func NewCart(gw CartGateway, g *guard.Guard, auth AuthState, logger *slog.Logger) *Cart {
	return &Cart{
		lines:  []domain.CartLine{},
		gw:     gw,
		guard:  g,
		auth:   auth,
		logger: logger,
	}
}

// FetchAll loads the full cart from the commerce API and replaces the local
// collection. An authentication failure empties the collection and propagates
// so the call site can terminate the session; any other failure leaves the
// previous state untouched.
func (c *Cart) FetchAll(ctx context.Context) error {
	if !c.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	if !c.guard.TryAcquire(cartFetchKey) {
		recordRejection(cartCollection, "fetch")
		return apperrors.InFlight("fetch", "cart")
	}
	defer c.guard.Release(cartFetchKey)

	lines, err := c.gw.ListCart(ctx)
	if err != nil {
		recordOperation(cartCollection, "fetch", outcomeFailure)
		if errors.Is(err, apperrors.ErrAuthRequired) {
			c.Clear()
		}
		return err
	}

	c.mu.Lock()
	c.lines = lines
	n := len(c.lines)
	c.mu.Unlock()

	recordOperation(cartCollection, "fetch", outcomeSuccess)
	recordSize(cartCollection, n)
	c.logger.InfoContext(ctx, "cart loaded", slog.Int("lines", n))
	return nil
}

// Add requests addition of one unit of the product. The server is
// authoritative on merge semantics: when it returns a line for a product that
// already has one locally, the local line is replaced rather than duplicated.
func (c *Cart) Add(ctx context.Context, productID string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if !c.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	key := cartKey(productID)
	if !c.guard.TryAcquire(key) {
		recordRejection(cartCollection, "add")
		return apperrors.InFlight("add", productID)
	}
	defer c.guard.Release(key)

	line, err := c.gw.AddCartLine(ctx, productID, 1)
	if err != nil {
		recordOperation(cartCollection, "add", outcomeFailure)
		return err
	}

	c.mu.Lock()
	if i := domain.FindLineIndex(c.lines, productID); i >= 0 {
		c.lines[i] = line
	} else {
		c.lines = append(c.lines, line)
	}
	n := len(c.lines)
	c.mu.Unlock()

	recordOperation(cartCollection, "add", outcomeSuccess)
	recordSize(cartCollection, n)
	c.logger.InfoContext(ctx, "cart line added",
		slog.String("product_id", productID),
		slog.String("line_id", line.LineID),
	)
	return nil
}

// Remove deletes the product's line. A product without a local line fails
// fast with no network call; a server-side not-found is absorbed as success
// and any local remnant is still deleted.
func (c *Cart) Remove(ctx context.Context, productID string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if !c.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	key := cartKey(productID)
	if !c.guard.TryAcquire(key) {
		recordRejection(cartCollection, "remove")
		return apperrors.InFlight("remove", productID)
	}
	defer c.guard.Release(key)

	c.mu.RLock()
	i := domain.FindLineIndex(c.lines, productID)
	var lineID string
	if i >= 0 {
		lineID = c.lines[i].LineID
	}
	c.mu.RUnlock()

	if lineID == "" {
		return apperrors.NotFound("cart line", productID)
	}

	err := c.gw.DeleteCartLine(ctx, lineID)
	if err != nil && !errors.Is(err, apperrors.ErrAlreadyDone) {
		recordOperation(cartCollection, "remove", outcomeFailure)
		return err
	}

	c.mu.Lock()
	if i := domain.FindLineIndex(c.lines, productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	n := len(c.lines)
	c.mu.Unlock()

	recordOperation(cartCollection, "remove", outcomeSuccess)
	recordSize(cartCollection, n)
	c.logger.InfoContext(ctx, "cart line removed",
		slog.String("product_id", productID),
		slog.String("line_id", lineID),
	)
	return nil
}

// UpdateQuantity sets the line's quantity. Quantities below one and products
// without a local line are rejected before any network call. On success the
// requested quantity is written locally; the commerce API echoes the same
// value, and writing the request avoids a visible flicker if it ever lags.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}
	if !c.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	key := cartKey(productID)
	if !c.guard.TryAcquire(key) {
		recordRejection(cartCollection, "update")
		return apperrors.InFlight("update", productID)
	}
	defer c.guard.Release(key)

	c.mu.RLock()
	i := domain.FindLineIndex(c.lines, productID)
	var lineID string
	if i >= 0 {
		lineID = c.lines[i].LineID
	}
	c.mu.RUnlock()

	if lineID == "" {
		return apperrors.NotFound("cart line", productID)
	}

	if err := c.gw.UpdateCartLine(ctx, lineID, quantity); err != nil {
		recordOperation(cartCollection, "update", outcomeFailure)
		return err
	}

	c.mu.Lock()
	if i := domain.FindLineIndex(c.lines, productID); i >= 0 {
		c.lines[i].Quantity = quantity
	}
	c.mu.Unlock()

	recordOperation(cartCollection, "update", outcomeSuccess)
	c.logger.InfoContext(ctx, "cart quantity updated",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// IsPresent reports whether the product has a line, from local state only.
func (c *Cart) IsPresent(productID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.FindLineIndex(c.lines, productID) >= 0
}

// Count returns the number of cart lines.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// Lines returns a snapshot copy of the collection.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Clear wipes the local collection without any network call. Used on session
// teardown, which must leave a consistent empty state immediately.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = []domain.CartLine{}
	c.mu.Unlock()
	recordSize(cartCollection, 0)
}
