package models

// Role is the directory role of a user account.
type Role string

const (
	// RolePartner is the revenue-earning side. Partners see only their
	// own transactions and may delete them, nothing else.
	RolePartner Role = "partner"

	// RoleBoss is the administrator side. Bosses see every transaction
	// and hold all edit authority.
	RoleBoss Role = "boss"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePartner || r == RoleBoss
}

// User represents a registered account in the user directory.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the login identifier (unique).
	Email string `json:"email"`

	// Name is the display name shown on transactions and selection lists.
	Name string `json:"name"`

	// Role determines visibility and edit authority.
	Role Role `json:"role"`

	// PasswordHash is the bcrypt hash of the login credential.
	// Never serialized.
	PasswordHash string `json:"-"`

	// CreatedAt is the Unix timestamp (milliseconds) when the account
	// was created.
	CreatedAt int64 `json:"created_at"`
}

// Actor is the resolved identity attached to every store and service call.
// A zero Actor means unauthenticated: no transactions visible, no writes.
type Actor struct {
	UserID string
	Name   string
	Role   Role
}

// Authenticated reports whether the actor carries a resolved identity.
func (a Actor) Authenticated() bool {
	return a.UserID != "" && a.Role.Valid()
}

// IsBoss reports whether the actor holds the administrator role.
func (a Actor) IsBoss() bool {
	return a.Role == RoleBoss
}
