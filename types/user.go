package types

import "time"

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultAvatarPath is assigned to accounts that have not uploaded an avatar.
const DefaultAvatarPath = "/images/avatar-placeholder.png"

// User represents a customer or staff account in the shop.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Name is the user's full name. It always contains at least
	// a first and a last name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. Unique across all accounts.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the shop,
	// either "user" or "admin".
	Role string `json:"role" db:"role"`

	// AvatarPath points at the user's profile image. Accounts start
	// with DefaultAvatarPath until an image is uploaded.
	AvatarPath string `json:"avatar_path" db:"avatar_path"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
