package models

// Order is a laundry order referenced by order-related notifications.
// Owned by the order-management system; read-only for this service.
type Order struct {
	BaseModel

	CustomerID string    `gorm:"type:uuid;index;not null" json:"customer_id"`
	Customer   *Customer `json:"customer,omitempty"`

	TrackingID  string  `gorm:"type:varchar(32);uniqueIndex;not null" json:"tracking_id"`
	Status      string  `gorm:"type:varchar(32);not null" json:"status"`
	FinalAmount float64 `gorm:"default:0" json:"final_amount"`
}
