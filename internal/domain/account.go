package domain

import "time"

// Account is the identity record for a registered user. The ID is assigned
// by the store on create and never changes; the password hash is an opaque
// blob owned by the hasher.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials is the transient login input. It is never persisted.
type Credentials struct {
	Username string
	Password string
}
