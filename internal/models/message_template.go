package models

import "gorm.io/datatypes"

// MessageTemplate is a pre-approved WhatsApp message template with
// {{paramN}}-style placeholders in its body text.
type MessageTemplate struct {
	BaseModel

	Name string           `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Type NotificationType `gorm:"type:varchar(32);not null" json:"notification_type"`

	// WhatsAppName is the template identifier registered with the provider.
	WhatsAppName string `gorm:"column:whatsapp_name;type:varchar(128);not null" json:"whatsapp_name"`
	LanguageCode string `gorm:"type:varchar(8);default:'en';not null" json:"language_code"`

	HeaderText string `gorm:"type:text" json:"header_text,omitempty"`
	BodyText   string `gorm:"type:text;not null" json:"body_text"`
	FooterText string `gorm:"type:text" json:"footer_text,omitempty"`

	HasButtons   bool           `gorm:"default:false" json:"has_buttons"`
	ButtonConfig datatypes.JSON `json:"button_config,omitempty"`

	IsActive   bool `gorm:"default:true;index" json:"is_active"`
	IsApproved bool `gorm:"default:false" json:"is_approved"`
}
