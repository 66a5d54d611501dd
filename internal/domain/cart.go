package domain

import "time"

// CartSchemaVersion tags the persisted cart document. Rehydrating a cart
// stored under a different version discards it rather than misreading it.
const CartSchemaVersion = 1

// Cart is the working cart of one authenticated user. All prices are in
// cents.
type Cart struct {
	UserID        string     `json:"user_id"`
	SchemaVersion int        `json:"schema_version"`
	Lines         []CartLine `json:"lines"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CartLine is a single product line in the cart. Quantity is always >= 1;
// setting it to zero removes the line.
type CartLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// NewCart returns an empty cart for the given user.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID:        userID,
		SchemaVersion: CartSchemaVersion,
		Lines:         []CartLine{},
		UpdatedAt:     time.Now().UTC(),
	}
}

// Total returns the sum of unit price times quantity over all lines, in cents.
func (c *Cart) Total() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLineIndex returns the index of the line for the given product, or -1.
// Lines are keyed by product ID only: adding the same product again merges
// into the existing line.
func (c *Cart) FindLineIndex(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Copy returns a deep copy of the cart. Snapshots handed to callers and to
// the checkout flow are copies, so later cart mutations cannot alter a
// payment in flight.
func (c *Cart) Copy() *Cart {
	cp := *c
	cp.Lines = make([]CartLine, len(c.Lines))
	copy(cp.Lines, c.Lines)
	return &cp
}

// CartSnapshot is an immutable view of the cart with derived totals.
type CartSnapshot struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	ItemCount int        `json:"item_count"`
	Total     int64      `json:"total"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Snapshot derives an immutable view with ItemCount and Total computed.
func (c *Cart) Snapshot() CartSnapshot {
	cp := c.Copy()
	return CartSnapshot{
		UserID:    cp.UserID,
		Lines:     cp.Lines,
		ItemCount: cp.ItemCount(),
		Total:     cp.Total(),
		UpdatedAt: cp.UpdatedAt,
	}
}
