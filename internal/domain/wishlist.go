package domain

// WishlistEntry represents one product saved in the wishlist. At most one
// entry exists per product.
type WishlistEntry struct {
	EntryID   string `json:"id"`
	ProductID string `json:"product_id"`
}

// FindEntryIndex returns the index of the wishlist entry for the given
// product, or -1 when the product has no entry.
func FindEntryIndex(entries []WishlistEntry, productID string) int {
	for i := range entries {
		if entries[i].ProductID == productID {
			return i
		}
	}
	return -1
}
