package notification

import (
	"encoding/json"
	"time"
)

// Delivery channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

type Notification struct {
	ID        int64           `gorm:"primaryKey"`
	UserID    int64           `gorm:"column:user_id;not null;index"`
	Verb      string          `gorm:"column:verb;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb"`
	Channel   string          `gorm:"column:channel;not null;default:in_app"`
	IsRead    bool            `gorm:"column:is_read;default:false;index"`
	CreatedAt time.Time       `gorm:"column:created_at;default:now()"`
}
