package models

// Tag labels transactions. Names are unique per user.
type Tag struct {
	Base
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_tags_user_name" json:"user_id"`
	Name   string `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"name"`
	Color  string `json:"color"`
}
