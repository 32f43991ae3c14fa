package types

import "time"

// Product represents an item listed in the shop catalog.
// It contains display metadata, pricing, and stock information.
type Product struct {
	// ID is the unique identifier of the product.
	ID string `json:"id" db:"id"`

	// UserID identifies the admin account that created the listing.
	UserID string `json:"user_id" db:"user_id"`

	// Name is the human-readable name of the product.
	Name string `json:"name" db:"name"`

	// Image points at the product's display image.
	Image string `json:"image" db:"image"`

	// Brand is the manufacturer or label the product is sold under.
	Brand string `json:"brand" db:"brand"`

	// Category is the catalog section the product is listed in.
	Category string `json:"category" db:"category"`

	// Description contains the full product description shown on
	// the detail page.
	Description string `json:"description" db:"description"`

	// PriceCents is the unit price expressed in cents, avoiding
	// floating point rounding on money.
	PriceCents int64 `json:"price_cents" db:"price_cents"`

	// CountInStock is the number of units currently available.
	CountInStock int `json:"count_in_stock" db:"count_in_stock"`

	// CreatedAt is the timestamp at which the product was listed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the listing.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
