package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. The ledger itself only ever sees the ID;
// username and password hash exist for the auth layer.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
