package models

import "time"

// CartSnapshot holds the serialized cart for one cart session.
type CartSnapshot struct {
	SessionID string    `gorm:"column:session_id;type:varchar(64);primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}
