package domain

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string // argon2 encoded
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
