package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType enumerates the reasons a message can be sent.
type NotificationType string

const (
	NotificationOrderConfirmation   NotificationType = "order_confirmation"
	NotificationStatusUpdate        NotificationType = "status_update"
	NotificationPickupReminder      NotificationType = "pickup_reminder"
	NotificationDeliveryReminder    NotificationType = "delivery_reminder"
	NotificationPaymentConfirmation NotificationType = "payment_confirmation"
	NotificationLoyaltyUpdate       NotificationType = "loyalty_update"
	NotificationPromotional         NotificationType = "promotional"
	NotificationFeedbackRequest     NotificationType = "feedback_request"
	NotificationCustom              NotificationType = "custom"
)

// KnownNotificationTypes lists every valid notification type value.
var KnownNotificationTypes = []NotificationType{
	NotificationOrderConfirmation,
	NotificationStatusUpdate,
	NotificationPickupReminder,
	NotificationDeliveryReminder,
	NotificationPaymentConfirmation,
	NotificationLoyaltyUpdate,
	NotificationPromotional,
	NotificationFeedbackRequest,
	NotificationCustom,
}

// Valid reports whether the type is one of the enumerated values.
func (t NotificationType) Valid() bool {
	for _, known := range KnownNotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// MessageStatus tracks the delivery lifecycle of a notification.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
	StatusRejected  MessageStatus = "rejected"
)

// Rank orders delivery states so late webhook callbacks cannot regress a
// notification that already advanced. Failed shares the sent rank: a failure
// report after confirmed delivery is stale and ignored.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent, StatusFailed, StatusRejected:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Notification records a single dispatch attempt group to a customer.
type Notification struct {
	BaseModel

	CustomerID string    `gorm:"type:uuid;index;not null" json:"customer_id"`
	Customer   *Customer `json:"-"`

	TemplateID *string `gorm:"type:uuid" json:"template_id,omitempty"`
	OrderID    *string `gorm:"type:uuid;index" json:"order_id,omitempty"`

	Type           NotificationType `gorm:"type:varchar(32);not null;index" json:"notification_type"`
	RecipientPhone string           `gorm:"type:varchar(32);not null" json:"recipient_phone"`
	MessageText    string           `gorm:"type:text;not null" json:"message_text"`

	// Provider linkage.
	WhatsAppMessageID  *string        `gorm:"column:whatsapp_message_id;type:varchar(128);index" json:"whatsapp_message_id,omitempty"`
	TemplateName       string         `gorm:"type:varchar(128)" json:"template_name,omitempty"`
	TemplateLanguage   string         `gorm:"type:varchar(8);default:'en'" json:"template_language"`
	TemplateParameters datatypes.JSON `json:"template_parameters,omitempty"`
	HeaderParameters   datatypes.JSON `json:"header_parameters,omitempty"`

	Status         MessageStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	DeliveryStatus *string       `gorm:"type:varchar(32)" json:"delivery_status,omitempty"`
	ErrorMessage   *string       `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount     int           `gorm:"default:0" json:"retry_count"`

	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
