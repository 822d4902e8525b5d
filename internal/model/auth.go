package model

import "time"

type ActorRole string

const (
	ActorUser       ActorRole = "user"
	ActorStaff      ActorRole = "staff"
	ActorSuperAdmin ActorRole = "superadmin"
)

type RegisterRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string    `json:"token"`
	UserName string    `json:"userName"`
	Role     ActorRole `json:"role,omitempty"`
}

// Identity is who the current session belongs to.
type Identity struct {
	UserName string    `json:"userName"`
	Email    string    `json:"email,omitempty"`
	Role     ActorRole `json:"role,omitempty"`
}

type User struct {
	ID        string    `json:"_id"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	Role      ActorRole `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
