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

const wishlistCollection = "wishlist"

const wishlistFetchKey = "wishlist:fetch"

// wishlistKey is shared by add, remove and toggle for a product, so a toggle
// racing another toggle (or a bare add/remove) for the same product can never
// execute both branches.
func wishlistKey(productID string) string {
	return "wishlist:" + productID
}

// WishlistGateway is the slice of the commerce API the wishlist engine needs.
type WishlistGateway interface {
	ListWishlist(ctx context.Context) ([]domain.WishlistEntry, error)
	AddWishlistEntry(ctx context.Context, productID string) (domain.WishlistEntry, error)
	DeleteWishlistEntry(ctx context.Context, entryID string) error
}

// ToggleAction names the branch a toggle resolved to.
type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleRemoved ToggleAction = "removed"
)

// ToggleResult reports the outcome of a toggle.
type ToggleResult struct {
	Action     ToggleAction `json:"action"`
	Wishlisted bool         `json:"now_wishlisted"`
}

// Wishlist owns the local wishlist collection.
type Wishlist struct {
	mu      sync.RWMutex
	entries []domain.WishlistEntry
	gw      WishlistGateway
	guard   *guard.Guard
	auth    AuthState
	logger  *slog.Logger
}

// NewWishlist creates a wishlist engine.
func NewWishlist(gw WishlistGateway, g *guard.Guard, auth AuthState, logger *slog.Logger) *Wishlist {
	return &Wishlist{
		entries: []domain.WishlistEntry{},
		gw:      gw,
		guard:   g,
		auth:    auth,
		logger:  logger,
	}
}

// FetchAll loads the full wishlist and replaces the local collection. An
// authentication failure empties the collection and propagates; any other
// failure leaves the previous state untouched.
func (w *Wishlist) FetchAll(ctx context.Context) error {
	if !w.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	if !w.guard.TryAcquire(wishlistFetchKey) {
		recordRejection(wishlistCollection, "fetch")
		return apperrors.InFlight("fetch", "wishlist")
	}
	defer w.guard.Release(wishlistFetchKey)

	entries, err := w.gw.ListWishlist(ctx)
	if err != nil {
		recordOperation(wishlistCollection, "fetch", outcomeFailure)
		if errors.Is(err, apperrors.ErrAuthRequired) {
			w.Clear()
		}
		return err
	}

	w.mu.Lock()
	w.entries = entries
	n := len(w.entries)
	w.mu.Unlock()

	recordOperation(wishlistCollection, "fetch", outcomeSuccess)
	recordSize(wishlistCollection, n)
	w.logger.InfoContext(ctx, "wishlist loaded", slog.Int("entries", n))
	return nil
}

// Add requests addition of the product to the wishlist.
func (w *Wishlist) Add(ctx context.Context, productID string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if !w.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	key := wishlistKey(productID)
	if !w.guard.TryAcquire(key) {
		recordRejection(wishlistCollection, "add")
		return apperrors.InFlight("add", productID)
	}
	defer w.guard.Release(key)

	return w.add(ctx, productID)
}

// Remove deletes the product's entry. Absent locally fails fast; a server
// not-found is absorbed as success.
func (w *Wishlist) Remove(ctx context.Context, productID string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if !w.auth.Authenticated() {
		return apperrors.AuthRequired("no active session")
	}

	key := wishlistKey(productID)
	if !w.guard.TryAcquire(key) {
		recordRejection(wishlistCollection, "remove")
		return apperrors.InFlight("remove", productID)
	}
	defer w.guard.Release(key)

	return w.remove(ctx, productID)
}

// Toggle adds the product when absent and removes it when present, deciding
// on local state after the shared per-product key is held.
func (w *Wishlist) Toggle(ctx context.Context, productID string) (ToggleResult, error) {
	if productID == "" {
		return ToggleResult{}, apperrors.InvalidInput("product id is required")
	}
	if !w.auth.Authenticated() {
		return ToggleResult{}, apperrors.AuthRequired("no active session")
	}

	key := wishlistKey(productID)
	if !w.guard.TryAcquire(key) {
		recordRejection(wishlistCollection, "toggle")
		return ToggleResult{}, apperrors.InFlight("toggle", productID)
	}
	defer w.guard.Release(key)

	if w.IsPresent(productID) {
		if err := w.remove(ctx, productID); err != nil {
			return ToggleResult{}, err
		}
		return ToggleResult{Action: ToggleRemoved, Wishlisted: false}, nil
	}

	if err := w.add(ctx, productID); err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Action: ToggleAdded, Wishlisted: true}, nil
}

// add assumes the per-product key is held by the caller.
func (w *Wishlist) add(ctx context.Context, productID string) error {
	entry, err := w.gw.AddWishlistEntry(ctx, productID)
	if err != nil {
		recordOperation(wishlistCollection, "add", outcomeFailure)
		return err
	}

	w.mu.Lock()
	if i := domain.FindEntryIndex(w.entries, productID); i >= 0 {
		w.entries[i] = entry
	} else {
		w.entries = append(w.entries, entry)
	}
	n := len(w.entries)
	w.mu.Unlock()

	recordOperation(wishlistCollection, "add", outcomeSuccess)
	recordSize(wishlistCollection, n)
	w.logger.InfoContext(ctx, "wishlist entry added",
		slog.String("product_id", productID),
		slog.String("entry_id", entry.EntryID),
	)
	return nil
}

// remove assumes the per-product key is held by the caller.
func (w *Wishlist) remove(ctx context.Context, productID string) error {
	w.mu.RLock()
	i := domain.FindEntryIndex(w.entries, productID)
	var entryID string
	if i >= 0 {
		entryID = w.entries[i].EntryID
	}
	w.mu.RUnlock()

	if entryID == "" {
		return apperrors.NotFound("wishlist entry", productID)
	}

	err := w.gw.DeleteWishlistEntry(ctx, entryID)
	if err != nil && !errors.Is(err, apperrors.ErrAlreadyDone) {
		recordOperation(wishlistCollection, "remove", outcomeFailure)
		return err
	}

	w.mu.Lock()
	if i := domain.FindEntryIndex(w.entries, productID); i >= 0 {
		w.entries = append(w.entries[:i], w.entries[i+1:]...)
	}
	n := len(w.entries)
	w.mu.Unlock()

	recordOperation(wishlistCollection, "remove", outcomeSuccess)
	recordSize(wishlistCollection, n)
	w.logger.InfoContext(ctx, "wishlist entry removed",
		slog.String("product_id", productID),
		slog.String("entry_id", entryID),
	)
	return nil
}

// IsPresent reports whether the product has an entry, from local state only.
func (w *Wishlist) IsPresent(productID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return domain.FindEntryIndex(w.entries, productID) >= 0
}

// Count returns the number of wishlist entries.
func (w *Wishlist) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Entries returns a snapshot copy of the collection.
func (w *Wishlist) Entries() []domain.WishlistEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.WishlistEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Clear wipes the local collection without any network call.
func (w *Wishlist) Clear() {
	w.mu.Lock()
	w.entries = []domain.WishlistEntry{}
	w.mu.Unlock()
	recordSize(wishlistCollection, 0)
}
