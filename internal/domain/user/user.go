package user

import (
	"strings"
	"time"
)

// Claim is a single typed fact about an identity. Claims end up inside
// issued tokens, so values are kept as plain strings.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Claims       []Claim   `json:"claims,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail is the canonical form used for storage and lookups.
// Uniqueness is case-insensitive, so both write and read paths must agree on it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
