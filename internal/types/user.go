package types

import (
	"time"

	"github.com/google/uuid"
)

// Role governs query scoping and mutation permissions.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleUser    Role = "User"
)

// ValidRole reports whether s is one of the three known roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// User represents the core user entity in the domain.
type User struct {
	ID           uuid.UUID `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"` // Unique identifier (UUID).
	Username     string    `json:"username" example:"johndoe"`                        // Display name, unique within the system.
	Email        string    `json:"email" example:"john.doe@example.com"`              // Unique email address used for login.
	PasswordHash string    `json:"-"`                                                 // Hashed password (never exposed).
	Role         Role      `json:"role" example:"User"`                               // One of Admin, Manager, User.
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
