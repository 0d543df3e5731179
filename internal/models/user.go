// internal/models/user.go
package models

import "time"

// Role controls which API operations a user may perform.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleViewer   Role = "viewer"
)

// User is the authenticated principal attached to a request.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	LastLogin time.Time `json:"lastLogin,omitempty"`
}
