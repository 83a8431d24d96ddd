package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's position within a business
type Role string

const (
	RoleSeller        Role = "seller"
	RoleAdministrator Role = "administrator"
	RoleSuperuser     Role = "superuser"
	RoleDriver        Role = "driver"
	RoleOffice        Role = "office"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSeller, RoleAdministrator, RoleSuperuser, RoleDriver, RoleOffice:
		return true
	}
	return false
}

// RequiresSellerCode reports whether the role must carry a seller code.
func (r Role) RequiresSellerCode() bool {
	return r == RoleSeller || r == RoleDriver
}

// User represents a person with access to a business
type User struct {
	BaseModel

	BusinessID uuid.UUID `json:"businessId" db:"business_id"`

	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	FirstName    string `json:"firstName" db:"first_name"`
	LastName     string `json:"lastName" db:"last_name"`
	Phone        string `json:"phone" db:"phone"`
	PhotoURL     string `json:"photoURL" db:"photo_url"`

	Role       Role   `json:"role" db:"role"`
	SellerCode string `json:"sellerCode,omitempty" db:"seller_code"`
	Warehouse  string `json:"warehouse,omitempty" db:"warehouse"`

	Initials     string `json:"initials" db:"initials"`
	Disabled     bool   `json:"disabled" db:"disabled"`
	TestModeUser bool   `json:"testModeUser" db:"test_mode_user"`

	LastSeenAt *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
}

// DisplayName returns the name shown in conversations and notifications.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// DeviceToken is a push registration for one user device
type DeviceToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
