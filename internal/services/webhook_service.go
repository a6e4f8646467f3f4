package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/pkg/logger"
	"github.com/laundrypro/server/pkg/metrics"
)

// webhookPayload mirrors the relevant portion of the WhatsApp Business
// webhook envelope.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Statuses         []struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Errors    []struct {
			Code  int    `json:"code"`
			Title string `json:"title"`
		} `json:"errors"`
	} `json:"statuses"`
	Messages []struct {
		ID   string `json:"id"`
		From string `json:"from"`
		Type string `json:"type"`
		Text struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
}

// WebhookService ingests delivery receipts and inbound messages from the
// channel provider.
type WebhookService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewWebhookService constructs a WebhookService.
func NewWebhookService(db *gorm.DB) (*WebhookService, error) {
	if db == nil {
		return nil, errors.New("webhook service: db is required")
	}
	return &WebhookService{db: db, log: logger.WithModule("webhook")}, nil
}

// ProcessEvent stores the raw payload for audit and applies any status
// updates it carries. Malformed payloads and unknown message ids are
// recorded but never returned as errors; only storage failures are.
func (s *WebhookService) ProcessEvent(ctx context.Context, raw []byte) error {
	ctx = ensureContext(ctx)

	event := models.WebhookEvent{
		EventType: "unknown",
		RawData:   datatypes.JSON(raw),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("webhook service: store event: %w", err)
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.log.Warn("discarding malformed webhook payload", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return s.markProcessed(ctx, &event, "malformed")
	}

	eventType := "unknown"
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			if len(change.Value.Statuses) > 0 {
				eventType = "message_status"
				for _, status := range change.Value.Statuses {
					if err := s.applyStatus(ctx, &event, status.ID, status.Status, status.Timestamp, statusError(change.Value, status.ID)); err != nil {
						return err
					}
				}
			}
			if len(change.Value.Messages) > 0 {
				if eventType == "unknown" {
					eventType = "inbound_message"
				}
				for _, msg := range change.Value.Messages {
					s.log.Info("received inbound message",
						zap.String("message_id", msg.ID),
						zap.String("from", msg.From),
						zap.String("type", msg.Type))
				}
			}
		}
	}

	metrics.WebhookEvents.WithLabelValues("processed").Inc()
	return s.markProcessed(ctx, &event, eventType)
}

func statusError(value webhookValue, messageID string) string {
	for _, status := range value.Statuses {
		if status.ID == messageID && len(status.Errors) > 0 {
			return status.Errors[0].Title
		}
	}
	return ""
}

// applyStatus advances the matching notification's delivery state. Updates
// are monotonic: a receipt never moves a message backwards in its
// lifecycle, with the exception that a failure may override a bare send.
func (s *WebhookService) applyStatus(ctx context.Context, event *models.WebhookEvent, messageID, rawStatus, timestamp, errTitle string) error {
	var notification models.Notification
	err := s.db.WithContext(ctx).
		First(&notification, "whatsapp_message_id = ?", messageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug("status for unknown message", zap.String("message_id", messageID))
			return nil
		}
		return fmt.Errorf("webhook service: load notification: %w", err)
	}

	if event.NotificationID == nil {
		s.db.WithContext(ctx).
			Model(&models.WebhookEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]any{
				"whatsapp_message_id": messageID,
				"notification_id":     notification.ID,
			})
		event.NotificationID = &notification.ID
		event.WhatsAppMessageID = &messageID
	}

	newStatus := models.MessageStatus(rawStatus)
	switch newStatus {
	case models.StatusSent, models.StatusDelivered, models.StatusRead, models.StatusFailed:
	default:
		s.log.Debug("ignoring unrecognised delivery status",
			zap.String("message_id", messageID),
			zap.String("status", rawStatus))
		return nil
	}

	current := notification.Status
	allowed := newStatus.Rank() > current.Rank() ||
		(newStatus == models.StatusFailed && current.Rank() <= models.StatusSent.Rank())
	if !allowed {
		s.log.Debug("ignoring out-of-order delivery status",
			zap.String("message_id", messageID),
			zap.String("current", string(current)),
			zap.String("received", rawStatus))
		return nil
	}

	at := parseReceiptTime(timestamp)
	updates := map[string]any{
		"status":          newStatus,
		"delivery_status": rawStatus,
	}
	switch newStatus {
	case models.StatusSent:
		updates["sent_at"] = at
	case models.StatusDelivered:
		updates["delivered_at"] = at
	case models.StatusRead:
		updates["read_at"] = at
		if notification.DeliveredAt == nil {
			updates["delivered_at"] = at
		}
	case models.StatusFailed:
		if errTitle == "" {
			errTitle = "Message failed"
		}
		updates["error_message"] = errTitle
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notification.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("webhook service: update notification status: %w", err)
	}
	return nil
}

// parseReceiptTime interprets the provider's unix-seconds timestamp, falling
// back to now when absent or unparsable.
func parseReceiptTime(timestamp string) time.Time {
	if timestamp != "" {
		if secs, err := strconv.ParseInt(timestamp, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0)
		}
	}
	return time.Now()
}

func (s *WebhookService) markProcessed(ctx context.Context, event *models.WebhookEvent, eventType string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"event_type":   eventType,
			"processed":    true,
			"processed_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("webhook service: mark event processed: %w", err)
	}
	return nil
}

// ListEvents returns recent webhook events, newest first.
func (s *WebhookService) ListEvents(ctx context.Context, limit, offset int) ([]models.WebhookEvent, int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.WebhookEvent{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("webhook service: count events: %w", err)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []models.WebhookEvent
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("webhook service: list events: %w", err)
	}
	return rows, total, nil
}

// CleanupProcessedOlderThan deletes processed webhook events beyond the
// retention window.
func (s *WebhookService) CleanupProcessedOlderThan(ctx context.Context, days int) (int64, error) {
	ctx = ensureContext(ctx)

	if days <= 0 {
		return 0, errors.New("webhook service: retention days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	result := s.db.WithContext(ctx).
		Where("processed = ? AND created_at < ?", true, cutoff).
		Delete(&models.WebhookEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("webhook service: cleanup events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
