package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// User models an admin-area account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Claims is the decoded payload of a verified session token.
type Claims struct {
	UserID    string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Actor is the authenticated principal on whose behalf a mutation runs.
type Actor struct {
	UserID   string
	Username string
	Role     string
}

// Authenticated reports whether the actor carries a verified identity.
func (a Actor) Authenticated() bool {
	return a.UserID != "" && a.Role != ""
}

// CanEdit reports whether the actor may mutate content.
func (a Actor) CanEdit() bool {
	return a.Role == RoleAdmin || a.Role == RoleEditor
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActorFromClaims converts verified claims into an Actor.
func ActorFromClaims(c Claims) Actor {
	return Actor{UserID: c.UserID, Username: c.Username, Role: c.Role}
}
