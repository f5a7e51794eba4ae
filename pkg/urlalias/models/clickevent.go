package models

// ClickEvent records one successful redirect. Rows are immutable and are
// removed only by cascade when their ShortURL is deleted.
type ClickEvent struct {
	ID         uint  `gorm:"primarykey" json:"id"`
	ShortURLID uint  `gorm:"not null;index" json:"short_url_id"`
	ClickedAt  int64 `gorm:"not null" json:"clicked_at"`

	ShortURL ShortURL `gorm:"foreignKey:ShortURLID;constraint:OnDelete:CASCADE" json:"-"`
}
