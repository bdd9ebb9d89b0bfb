package model

import "time"

// Session is one active bearer token. Logout deletes the matching row,
// logout-all deletes every row for the user.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"size:512;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
