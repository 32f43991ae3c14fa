package types

import "time"

// Order statuses as they progress through fulfilment.
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
)

// Order represents a purchase placed by a user. The API layer only
// reads orders, to enrich profile responses with purchase history.
type Order struct {
	// ID is the unique identifier of the order.
	ID string `json:"id" db:"id"`

	// UserID identifies the account that placed the order.
	UserID string `json:"user_id" db:"user_id"`

	// TotalCents is the order total expressed in cents.
	TotalCents int64 `json:"total_cents" db:"total_cents"`

	// Status is the fulfilment state of the order.
	Status string `json:"status" db:"status"`

	// ShippingPhone is the contact number left for the courier,
	// stored as entered by the user.
	ShippingPhone string `json:"shipping_phone" db:"shipping_phone"`

	// CreatedAt is the timestamp at which the order was placed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
