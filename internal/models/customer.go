package models

// Customer is the recipient of notifications. The wider order-management
// system owns this table; the notification pipeline only reads it.
type Customer struct {
	BaseModel

	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Phone string `gorm:"type:varchar(32)" json:"phone"`
	Email string `gorm:"type:varchar(255)" json:"email"`

	LoyaltyPoints int    `gorm:"default:0" json:"loyalty_points"`
	LoyaltyTier   string `gorm:"type:varchar(32);default:'bronze'" json:"loyalty_tier"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}
