package models

import "time"

// User represents an account that owns short URLs
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `json:"-"`
	// TokenVersion increments on revocation; tokens minted with an older
	// version are rejected by the auth middleware.
	TokenVersion int `gorm:"not null;default:0" json:"-"`
}
