package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
	apperrors "github.com/laundrypro/server/pkg/errors"
)

// UpdatePreferencesInput enumerates the fields a caller may change. Nil
// pointers leave the stored value untouched.
type UpdatePreferencesInput struct {
	WhatsAppOptedIn     *bool   `json:"whatsapp_opted_in"`
	WhatsAppPhone       *string `json:"whatsapp_phone"`
	OrderUpdates        *bool   `json:"order_updates"`
	PickupReminders     *bool   `json:"pickup_reminders"`
	PromotionalMessages *bool   `json:"promotional_messages"`
	LoyaltyUpdates      *bool   `json:"loyalty_updates"`
	FeedbackRequests    *bool   `json:"feedback_requests"`
	PreferredLanguage   *string `json:"preferred_language"`
	PreferredTimeStart  *string `json:"preferred_time_start"`
	PreferredTimeEnd    *string `json:"preferred_time_end"`
	Timezone            *string `json:"timezone"`
}

// PreferenceService manages per-customer notification opt-in settings.
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService constructs a PreferenceService.
func NewPreferenceService(db *gorm.DB) (*PreferenceService, error) {
	if db == nil {
		return nil, errors.New("preference service: db is required")
	}
	return &PreferenceService{db: db}, nil
}

// GetOrCreate returns the customer's preferences, lazily creating a row with
// permissive defaults on first access.
func (s *PreferenceService) GetOrCreate(ctx context.Context, customerID string) (*models.NotificationPreference, error) {
	ctx = ensureContext(ctx)
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, errors.New("preference service: customer id is required")
	}

	var prefs models.NotificationPreference
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&prefs).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("preference service: load preferences: %w", err)
	}

	prefs = models.NotificationPreference{
		CustomerID:          customerID,
		WhatsAppOptedIn:     true,
		OrderUpdates:        true,
		PickupReminders:     true,
		PromotionalMessages: true,
		LoyaltyUpdates:      true,
		FeedbackRequests:    true,
		PreferredLanguage:   "en",
		PreferredTimeStart:  "09:00",
		PreferredTimeEnd:    "21:00",
		Timezone:            "UTC",
	}
	if err := s.db.WithContext(ctx).Create(&prefs).Error; err != nil {
		// A concurrent request may have created the row first.
		if isUniqueConstraintError(err) {
			if retryErr := s.db.WithContext(ctx).
				Where("customer_id = ?", customerID).
				First(&prefs).Error; retryErr == nil {
				return &prefs, nil
			}
		}
		return nil, fmt.Errorf("preference service: create preferences: %w", err)
	}

	return &prefs, nil
}

// Update applies the supplied partial update and returns the stored row.
func (s *PreferenceService) Update(ctx context.Context, customerID string, input UpdatePreferencesInput) (*models.NotificationPreference, error) {
	ctx = ensureContext(ctx)

	prefs, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.WhatsAppOptedIn != nil {
		updates["whatsapp_opted_in"] = *input.WhatsAppOptedIn
		if *input.WhatsAppOptedIn {
			updates["opted_out_at"] = nil
		} else {
			updates["opted_out_at"] = time.Now().UTC()
		}
	}
	if input.WhatsAppPhone != nil {
		phone := strings.TrimSpace(*input.WhatsAppPhone)
		if phone == "" {
			updates["whatsapp_phone"] = nil
		} else {
			updates["whatsapp_phone"] = phone
		}
	}
	if input.OrderUpdates != nil {
		updates["order_updates"] = *input.OrderUpdates
	}
	if input.PickupReminders != nil {
		updates["pickup_reminders"] = *input.PickupReminders
	}
	if input.PromotionalMessages != nil {
		updates["promotional_messages"] = *input.PromotionalMessages
	}
	if input.LoyaltyUpdates != nil {
		updates["loyalty_updates"] = *input.LoyaltyUpdates
	}
	if input.FeedbackRequests != nil {
		updates["feedback_requests"] = *input.FeedbackRequests
	}
	if input.PreferredLanguage != nil {
		updates["preferred_language"] = defaultIfEmpty(strings.TrimSpace(*input.PreferredLanguage), "en")
	}
	if input.PreferredTimeStart != nil {
		if err := validateClock(*input.PreferredTimeStart); err != nil {
			return nil, apperrors.NewBadRequest("preferred_time_start must use HH:MM format")
		}
		updates["preferred_time_start"] = *input.PreferredTimeStart
	}
	if input.PreferredTimeEnd != nil {
		if err := validateClock(*input.PreferredTimeEnd); err != nil {
			return nil, apperrors.NewBadRequest("preferred_time_end must use HH:MM format")
		}
		updates["preferred_time_end"] = *input.PreferredTimeEnd
	}
	if input.Timezone != nil {
		updates["timezone"] = defaultIfEmpty(strings.TrimSpace(*input.Timezone), "UTC")
	}

	if len(updates) == 0 {
		return prefs, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&models.NotificationPreference{}).
		Where("id = ?", prefs.ID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("preference service: update preferences: %w", err)
	}

	var updated models.NotificationPreference
	if err := s.db.WithContext(ctx).First(&updated, "id = ?", prefs.ID).Error; err != nil {
		return nil, fmt.Errorf("preference service: reload preferences: %w", err)
	}

	return &updated, nil
}

func validateClock(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return err
	}
	return nil
}
