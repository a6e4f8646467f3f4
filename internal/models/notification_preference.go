package models

import "time"

// NotificationPreference stores a customer's opt-in choices. Rows are created
// lazily with permissive defaults the first time a customer is looked up.
type NotificationPreference struct {
	BaseModel

	CustomerID string `gorm:"type:uuid;uniqueIndex;not null" json:"customer_id"`

	WhatsAppOptedIn bool    `gorm:"column:whatsapp_opted_in;default:true" json:"whatsapp_opted_in"`
	WhatsAppPhone   *string `gorm:"column:whatsapp_phone;type:varchar(32)" json:"whatsapp_phone,omitempty"`

	OrderUpdates        bool `gorm:"default:true" json:"order_updates"`
	PickupReminders     bool `gorm:"default:true" json:"pickup_reminders"`
	PromotionalMessages bool `gorm:"default:true" json:"promotional_messages"`
	LoyaltyUpdates      bool `gorm:"default:true" json:"loyalty_updates"`
	FeedbackRequests    bool `gorm:"default:true" json:"feedback_requests"`

	PreferredLanguage  string `gorm:"type:varchar(8);default:'en'" json:"preferred_language"`
	PreferredTimeStart string `gorm:"type:varchar(5);default:'09:00'" json:"preferred_time_start"`
	PreferredTimeEnd   string `gorm:"type:varchar(5);default:'21:00'" json:"preferred_time_end"`
	Timezone           string `gorm:"type:varchar(64);default:'UTC'" json:"timezone"`

	OptedOutAt *time.Time `json:"opted_out_at,omitempty"`
}

// Allows reports whether the preference permits the given notification type.
func (p *NotificationPreference) Allows(t NotificationType) bool {
	if p == nil || !p.WhatsAppOptedIn {
		return false
	}

	switch t {
	case NotificationOrderConfirmation, NotificationStatusUpdate, NotificationPaymentConfirmation:
		return p.OrderUpdates
	case NotificationPickupReminder, NotificationDeliveryReminder:
		return p.PickupReminders
	case NotificationLoyaltyUpdate:
		return p.LoyaltyUpdates
	case NotificationPromotional:
		return p.PromotionalMessages
	case NotificationFeedbackRequest:
		return p.FeedbackRequests
	default:
		return true
	}
}
