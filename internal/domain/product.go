package domain

// Product is a catalog entry served by the backend order store. The
// storefront never writes products, it only reads them for the menu and
// checks availability before a cart add.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Available   bool   `json:"available"`
	ImageURL    string `json:"image_url,omitempty"`
}
