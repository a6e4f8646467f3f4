package database

import (
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Customer{},
		&models.Order{},
		&models.MessageTemplate{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.WebhookEvent{},
		&models.CacheEntry{},
	)
}

// SeedData populates the default approved message templates used by the
// order and loyalty triggers.
func SeedData(db *gorm.DB) error {
	templates := []models.MessageTemplate{
		{
			Name:         "order_confirmation",
			Type:         models.NotificationOrderConfirmation,
			WhatsAppName: "order_confirmation",
			BodyText:     "Hi {{param1}}! Your laundry order {{param2}} for {{param3}} has been confirmed. We will notify you once it is ready.",
		},
		{
			Name:         "status_update",
			Type:         models.NotificationStatusUpdate,
			WhatsAppName: "status_update",
			BodyText:     "Hi {{param1}}! Your order {{param2}} is now {{param3}}.",
		},
		{
			Name:         "pickup_reminder",
			Type:         models.NotificationPickupReminder,
			WhatsAppName: "pickup_reminder",
			BodyText:     "Hi {{param1}}! Your order {{param2}} is ready for pickup.",
		},
		{
			Name:         "delivery_reminder",
			Type:         models.NotificationDeliveryReminder,
			WhatsAppName: "delivery_reminder",
			BodyText:     "Hi {{param1}}! Your order {{param2}} is out for delivery.",
		},
		{
			Name:         "payment_confirmation",
			Type:         models.NotificationPaymentConfirmation,
			WhatsAppName: "payment_confirmation",
			BodyText:     "Hi {{param1}}! We received your payment of {{param2}} for order {{param3}}. Thank you!",
		},
		{
			Name:         "feedback_request",
			Type:         models.NotificationFeedbackRequest,
			WhatsAppName: "feedback_request",
			BodyText:     "Hi {{param1}}! How did we do with order {{param2}}? We would love your feedback.",
		},
		{
			Name:         "loyalty_points_earned",
			Type:         models.NotificationLoyaltyUpdate,
			WhatsAppName: "loyalty_points_earned",
			BodyText:     "Hi {{param1}}! You earned {{param2}} loyalty points. Your balance is now {{param3}}.",
		},
		{
			Name:         "loyalty_tier_upgrade",
			Type:         models.NotificationLoyaltyUpdate,
			WhatsAppName: "loyalty_tier_upgrade",
			BodyText:     "Hi {{param1}}! You earned {{param2}} points (balance {{param3}}) and reached the {{param4}} tier. Congratulations!",
		},
	}

	for _, tpl := range templates {
		tpl.LanguageCode = "en"
		tpl.IsActive = true
		tpl.IsApproved = true
		if err := db.Where(models.MessageTemplate{Name: tpl.Name}).
			Attrs(tpl).
			FirstOrCreate(&models.MessageTemplate{}).Error; err != nil {
			return err
		}
	}

	return nil
}
