package models

import "time"

// ShortURL represents a shortened URL and its policy state.
// ShortCode is nullable only between the initial insert and the code
// backfill inside the create transaction; once assigned it never changes.
type ShortURL struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ShortCode   *string   `gorm:"uniqueIndex" json:"short_code"`
	OriginalURL string    `gorm:"not null" json:"original_url"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Tag         *string   `json:"tag,omitempty"`
	// ClicksLeft is the remaining click budget; nil means unlimited.
	ClicksLeft *int64 `json:"clicks_left,omitempty"`
	IsActive   bool   `gorm:"not null;default:true" json:"is_active"`
	// ExpiresAt is an absolute epoch-seconds deadline, always set.
	ExpiresAt int64 `gorm:"not null" json:"expires_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
