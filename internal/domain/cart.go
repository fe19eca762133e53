package domain

// CartLine represents one product's presence in the cart. LineID is the
// server-assigned identity; at most one line exists per product.
type CartLine struct {
	LineID    string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// FindLineIndex returns the index of the cart line for the given product, or
// -1 when the product has no line.
func FindLineIndex(lines []CartLine, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
