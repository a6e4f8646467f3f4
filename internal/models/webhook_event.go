package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is an append-only audit record of every inbound provider
// callback, persisted before any parsing so failures remain diagnosable.
type WebhookEvent struct {
	BaseModel

	EventType         string  `gorm:"type:varchar(64);not null" json:"event_type"`
	WhatsAppMessageID *string `gorm:"column:whatsapp_message_id;type:varchar(128);index" json:"whatsapp_message_id,omitempty"`
	NotificationID    *string `gorm:"type:uuid" json:"notification_id,omitempty"`

	RawData datatypes.JSON `gorm:"not null" json:"raw_data"`

	Processed   bool       `gorm:"default:false;index" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
