package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/internal/whatsapp"
	apperrors "github.com/laundrypro/server/pkg/errors"
	"github.com/laundrypro/server/pkg/logger"
	"github.com/laundrypro/server/pkg/metrics"
)

const (
	maxTemplateParameters = 10
	maxBulkRecipients     = 100
	defaultBulkDelay      = 100 * time.Millisecond

	// Pending rows without a schedule older than this are treated as
	// stranded by a crash and picked up by DispatchDue.
	unscheduledDispatchAge = 5 * time.Minute
)

// MessageSender is the outbound channel used to deliver messages. The
// production implementation is *whatsapp.Client.
type MessageSender interface {
	Enabled() bool
	SendTemplate(ctx context.Context, msg whatsapp.TemplateMessage) whatsapp.SendResult
	SendText(ctx context.Context, to, body string) whatsapp.SendResult
}

// SendNotificationInput describes a single notification request.
type SendNotificationInput struct {
	CustomerID         string
	Type               models.NotificationType
	TemplateName       string
	TemplateParameters []string
	HeaderParameters   []string
	CustomMessage      string
	OrderID            *string
	ScheduledAt        *time.Time
}

// SendOutcome reports what happened to a single notification request.
type SendOutcome struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	NotificationID string `json:"notification_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Outcome statuses.
const (
	OutcomeSent      = "sent"
	OutcomeScheduled = "scheduled"
	OutcomeOptedOut  = "opted_out"
	OutcomeFailed    = "failed"
)

// BulkNotificationInput asks for the same templated message across many
// customers.
type BulkNotificationInput struct {
	CustomerIDs        []string
	Type               models.NotificationType
	TemplateName       string
	TemplateParameters []string
	CustomMessage      string
}

// BulkReport summarises a bulk send.
type BulkReport struct {
	Total    int                    `json:"total"`
	Sent     int                    `json:"sent"`
	Failed   int                    `json:"failed"`
	Skipped  int                    `json:"skipped"`
	Outcomes map[string]SendOutcome `json:"outcomes"`
}

// RetryReport summarises a retry pass over failed notifications.
type RetryReport struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// NotificationStats aggregates delivery counters over a window.
type NotificationStats struct {
	TotalSent      int64   `json:"total_sent"`
	TotalDelivered int64   `json:"total_delivered"`
	TotalRead      int64   `json:"total_read"`
	TotalFailed    int64   `json:"total_failed"`
	TotalPending   int64   `json:"total_pending"`
	DeliveryRate   float64 `json:"delivery_rate"`
	ReadRate       float64 `json:"read_rate"`
	FailureRate    float64 `json:"failure_rate"`
	Last24Hours    int64   `json:"last_24_hours"`
	Last7Days      int64   `json:"last_7_days"`
	Last30Days     int64   `json:"last_30_days"`
}

// ListNotificationsInput filters notification history queries.
type ListNotificationsInput struct {
	CustomerID string
	OrderID    string
	TemplateID string
	Status     models.MessageStatus
	Type       models.NotificationType
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// OrderEvent identifies the lifecycle trigger behind an order notification.
type OrderEvent string

const (
	OrderEventCreated          OrderEvent = "order_created"
	OrderEventStatusUpdated    OrderEvent = "status_updated"
	OrderEventPickupReminder   OrderEvent = "pickup_reminder"
	OrderEventDeliveryReminder OrderEvent = "delivery_reminder"
	OrderEventPaymentConfirmed OrderEvent = "payment_confirmed"
	OrderEventFeedbackRequest  OrderEvent = "feedback_request"
)

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithBulkDelay overrides the pacing delay between bulk sends.
func WithBulkDelay(d time.Duration) NotificationOption {
	return func(s *NotificationService) {
		if d >= 0 {
			s.bulkDelay = d
		}
	}
}

// NotificationService orchestrates rendering, preference checks, persistence
// and delivery of outbound notifications.
type NotificationService struct {
	db        *gorm.DB
	sender    MessageSender
	prefs     *PreferenceService
	templates *TemplateService
	bulkDelay time.Duration
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, sender MessageSender, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if sender == nil {
		return nil, errors.New("notification service: sender is required")
	}

	prefs, err := NewPreferenceService(db)
	if err != nil {
		return nil, err
	}
	templates, err := NewTemplateService(db)
	if err != nil {
		return nil, err
	}

	service := &NotificationService{
		db:        db,
		sender:    sender,
		prefs:     prefs,
		templates: templates,
		bulkDelay: defaultBulkDelay,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Send processes a single notification request end to end. An opted-out
// customer produces an opted_out outcome and no stored record. A future
// ScheduledAt stores the record as pending and returns a scheduled outcome
// without touching the channel.
func (s *NotificationService) Send(ctx context.Context, input SendNotificationInput) (SendOutcome, error) {
	ctx = ensureContext(ctx)

	if !input.Type.Valid() {
		return SendOutcome{}, apperrors.NewBadRequest(fmt.Sprintf("unknown notification type %q", input.Type))
	}
	if len(input.TemplateParameters) > maxTemplateParameters {
		return SendOutcome{}, apperrors.NewBadRequest(fmt.Sprintf("at most %d template parameters are allowed", maxTemplateParameters))
	}

	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", input.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SendOutcome{}, apperrors.ErrCustomerNotFound
		}
		return SendOutcome{}, fmt.Errorf("notification service: load customer: %w", err)
	}

	prefs, err := s.prefs.GetOrCreate(ctx, customer.ID)
	if err != nil {
		return SendOutcome{}, err
	}
	if !prefs.Allows(input.Type) {
		return SendOutcome{Success: false, Status: OutcomeOptedOut, Error: "customer has opted out of this notification type"}, nil
	}

	phone := customer.Phone
	if prefs.WhatsAppPhone != nil && *prefs.WhatsAppPhone != "" {
		phone = *prefs.WhatsAppPhone
	}
	if strings.TrimSpace(phone) == "" {
		return SendOutcome{}, apperrors.ErrNoContact
	}

	notification := models.Notification{
		CustomerID:     customer.ID,
		OrderID:        input.OrderID,
		Type:           input.Type,
		RecipientPhone: phone,
		Status:         models.StatusPending,
		ScheduledAt:    input.ScheduledAt,
	}

	if input.TemplateName != "" {
		template, err := s.templates.GetUsable(ctx, input.TemplateName)
		if err != nil {
			return SendOutcome{}, err
		}
		notification.TemplateID = &template.ID
		notification.TemplateName = template.WhatsAppName
		notification.TemplateLanguage = template.LanguageCode
		notification.MessageText = RenderTemplate(template.BodyText, input.TemplateParameters)
		notification.TemplateParameters = encodeStrings(input.TemplateParameters)
		notification.HeaderParameters = encodeStrings(input.HeaderParameters)
	} else {
		if strings.TrimSpace(input.CustomMessage) == "" {
			return SendOutcome{}, apperrors.NewBadRequest("template_name or custom_message is required")
		}
		notification.MessageText = input.CustomMessage
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return SendOutcome{}, fmt.Errorf("notification service: create notification: %w", err)
	}

	if input.ScheduledAt != nil && input.ScheduledAt.After(time.Now()) {
		return SendOutcome{Success: true, Status: OutcomeScheduled, NotificationID: notification.ID}, nil
	}

	return s.deliver(ctx, &notification)
}

// deliver pushes an already persisted pending notification through the
// channel and records the result. Template and header parameters come from
// the stored row so scheduled and retried sends carry the same message.
func (s *NotificationService) deliver(ctx context.Context, notification *models.Notification) (SendOutcome, error) {
	var result whatsapp.SendResult
	if notification.TemplateID != nil {
		result = s.sender.SendTemplate(ctx, whatsapp.TemplateMessage{
			To:           notification.RecipientPhone,
			TemplateName: notification.TemplateName,
			LanguageCode: notification.TemplateLanguage,
			BodyParams:   decodeStrings(notification.TemplateParameters),
			HeaderParams: decodeStrings(notification.HeaderParameters),
		})
	} else {
		result = s.sender.SendText(ctx, notification.RecipientPhone, notification.MessageText)
	}

	now := time.Now()
	updates := map[string]any{}
	if result.Success {
		updates["status"] = models.StatusSent
		updates["whatsapp_message_id"] = result.MessageID
		updates["sent_at"] = now
		updates["error_message"] = nil
	} else {
		updates["status"] = models.StatusFailed
		updates["error_message"] = result.Error
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notification.ID).
		Updates(updates).Error; err != nil {
		return SendOutcome{}, fmt.Errorf("notification service: record delivery result: %w", err)
	}

	if result.Success {
		metrics.NotificationsSent.WithLabelValues(string(notification.Type), "sent").Inc()
		return SendOutcome{Success: true, Status: OutcomeSent, NotificationID: notification.ID, MessageID: result.MessageID}, nil
	}

	metrics.NotificationsSent.WithLabelValues(string(notification.Type), "failed").Inc()
	logger.Warn("notification delivery failed",
		zap.String("notification_id", notification.ID),
		zap.String("customer_id", notification.CustomerID),
		zap.String("error", result.Error))
	return SendOutcome{Success: false, Status: OutcomeFailed, NotificationID: notification.ID, Error: result.Error}, nil
}

// SendBulk sends the same message to up to 100 customers with a pacing delay
// between sends. A failure for one customer never aborts the rest.
func (s *NotificationService) SendBulk(ctx context.Context, input BulkNotificationInput) (*BulkReport, error) {
	ctx = ensureContext(ctx)

	if len(input.CustomerIDs) == 0 {
		return nil, apperrors.NewBadRequest("customer_ids is required")
	}
	if len(input.CustomerIDs) > maxBulkRecipients {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("at most %d customers per bulk send", maxBulkRecipients))
	}

	report := &BulkReport{
		Total:    len(input.CustomerIDs),
		Outcomes: make(map[string]SendOutcome, len(input.CustomerIDs)),
	}

	for i, customerID := range input.CustomerIDs {
		if i > 0 && s.bulkDelay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(s.bulkDelay):
			}
		}

		outcome, err := s.Send(ctx, SendNotificationInput{
			CustomerID:         customerID,
			Type:               input.Type,
			TemplateName:       input.TemplateName,
			TemplateParameters: input.TemplateParameters,
			CustomMessage:      input.CustomMessage,
		})
		if err != nil {
			outcome = SendOutcome{Success: false, Status: OutcomeFailed, Error: err.Error()}
		}

		report.Outcomes[customerID] = outcome
		switch outcome.Status {
		case OutcomeSent, OutcomeScheduled:
			report.Sent++
		case OutcomeOptedOut:
			report.Skipped++
		default:
			report.Failed++
		}
	}

	return report, nil
}

// RetryFailed re-attempts failed notifications whose retry count is below
// maxRetries. Every attempt increments retry_count whether or not it
// succeeds, so a notification is retried at most maxRetries times.
func (s *NotificationService) RetryFailed(ctx context.Context, maxRetries int) (*RetryReport, error) {
	ctx = ensureContext(ctx)

	if maxRetries <= 0 {
		maxRetries = 3
	}

	var failed []models.Notification
	err := s.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", models.StatusFailed, maxRetries).
		Order("created_at").
		Find(&failed).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: load failed notifications: %w", err)
	}

	report := &RetryReport{Attempted: len(failed)}
	for i := range failed {
		notification := &failed[i]

		if err := s.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ?", notification.ID).
			UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error; err != nil {
			return report, fmt.Errorf("notification service: bump retry count: %w", err)
		}

		outcome, err := s.deliver(ctx, notification)
		if err != nil {
			return report, err
		}
		if outcome.Success {
			report.Sent++
			metrics.NotificationRetries.WithLabelValues("sent").Inc()
		} else {
			report.Failed++
			metrics.NotificationRetries.WithLabelValues("failed").Inc()
		}
	}

	return report, nil
}

// DispatchDue delivers pending notifications whose schedule has arrived,
// plus unscheduled pending rows old enough to be considered stranded.
func (s *NotificationService) DispatchDue(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	now := time.Now()
	var due []models.Notification
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Where("scheduled_at <= ? OR (scheduled_at IS NULL AND created_at <= ?)", now, now.Add(-unscheduledDispatchAge)).
		Order("created_at").
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("notification service: load due notifications: %w", err)
	}

	sent := 0
	for i := range due {
		outcome, err := s.deliver(ctx, &due[i])
		if err != nil {
			return sent, err
		}
		if outcome.Success {
			sent++
		}
	}
	return sent, nil
}

// Stats aggregates delivery counters over the trailing window of days,
// optionally filtered to one customer. Delivery and failure rates are
// percentages of messages that left the pending state; the read rate is a
// percentage of delivered messages.
func (s *NotificationService) Stats(ctx context.Context, days int, customerID string) (*NotificationStats, error) {
	ctx = ensureContext(ctx)

	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("created_at >= ?", since)
		if customerID != "" {
			q = q.Where("customer_id = ?", customerID)
		}
		return q
	}

	stats := &NotificationStats{}
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalSent, base().Where("status <> ?", models.StatusPending)},
		{&stats.TotalDelivered, base().Where("status IN ?", []models.MessageStatus{models.StatusDelivered, models.StatusRead})},
		{&stats.TotalRead, base().Where("status = ?", models.StatusRead)},
		{&stats.TotalFailed, base().Where("status IN ?", []models.MessageStatus{models.StatusFailed, models.StatusRejected})},
		{&stats.TotalPending, base().Where("status = ?", models.StatusPending)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("notification service: count notifications: %w", err)
		}
	}

	if stats.TotalSent > 0 {
		stats.DeliveryRate = roundRate(stats.TotalDelivered, stats.TotalSent)
		stats.FailureRate = roundRate(stats.TotalFailed, stats.TotalSent)
	}
	if stats.TotalDelivered > 0 {
		stats.ReadRate = roundRate(stats.TotalRead, stats.TotalDelivered)
	}

	now := time.Now()
	windows := []struct {
		dest  *int64
		since time.Time
	}{
		{&stats.Last24Hours, now.Add(-24 * time.Hour)},
		{&stats.Last7Days, now.AddDate(0, 0, -7)},
		{&stats.Last30Days, now.AddDate(0, 0, -30)},
	}
	for _, w := range windows {
		q := s.db.WithContext(ctx).Model(&models.Notification{}).
			Where("created_at >= ? AND status <> ?", w.since, models.StatusPending)
		if customerID != "" {
			q = q.Where("customer_id = ?", customerID)
		}
		if err := q.Count(w.dest).Error; err != nil {
			return nil, fmt.Errorf("notification service: count window: %w", err)
		}
	}

	return stats, nil
}

func roundRate(part, total int64) float64 {
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// SendOrderNotification resolves the template and parameters for an order
// lifecycle event and sends it to the order's customer.
func (s *NotificationService) SendOrderNotification(ctx context.Context, orderID string, event OrderEvent) (SendOutcome, error) {
	ctx = ensureContext(ctx)

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Customer").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SendOutcome{}, apperrors.ErrNotFound
		}
		return SendOutcome{}, fmt.Errorf("notification service: load order: %w", err)
	}

	amount := fmt.Sprintf("%.2f", order.FinalAmount)
	var (
		notifType models.NotificationType
		template  string
		params    []string
	)
	switch event {
	case OrderEventCreated:
		notifType = models.NotificationOrderConfirmation
		template = "order_confirmation"
		params = []string{order.Customer.Name, order.TrackingID, amount}
	case OrderEventStatusUpdated:
		notifType = models.NotificationStatusUpdate
		template = "status_update"
		params = []string{order.Customer.Name, order.TrackingID, order.Status}
	case OrderEventPickupReminder:
		notifType = models.NotificationPickupReminder
		template = "pickup_reminder"
		params = []string{order.Customer.Name, order.TrackingID}
	case OrderEventDeliveryReminder:
		notifType = models.NotificationDeliveryReminder
		template = "delivery_reminder"
		params = []string{order.Customer.Name, order.TrackingID}
	case OrderEventPaymentConfirmed:
		notifType = models.NotificationPaymentConfirmation
		template = "payment_confirmation"
		params = []string{order.Customer.Name, amount, order.TrackingID}
	case OrderEventFeedbackRequest:
		notifType = models.NotificationFeedbackRequest
		template = "feedback_request"
		params = []string{order.Customer.Name, order.TrackingID}
	default:
		return SendOutcome{}, apperrors.NewBadRequest(fmt.Sprintf("unknown order event %q", event))
	}

	return s.Send(ctx, SendNotificationInput{
		CustomerID:         order.CustomerID,
		Type:               notifType,
		TemplateName:       template,
		TemplateParameters: params,
		OrderID:            &order.ID,
	})
}

// SendLoyaltyNotification notifies a customer about earned points, or about
// a tier upgrade when newTier is non-empty.
func (s *NotificationService) SendLoyaltyNotification(ctx context.Context, customerID string, points int, newTier string) (SendOutcome, error) {
	ctx = ensureContext(ctx)

	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SendOutcome{}, apperrors.ErrCustomerNotFound
		}
		return SendOutcome{}, fmt.Errorf("notification service: load customer: %w", err)
	}

	template := "loyalty_points_earned"
	params := []string{customer.Name, fmt.Sprintf("%d", points), fmt.Sprintf("%d", customer.LoyaltyPoints)}
	if newTier != "" {
		template = "loyalty_tier_upgrade"
		params = append(params, newTier)
	}

	return s.Send(ctx, SendNotificationInput{
		CustomerID:         customerID,
		Type:               models.NotificationLoyaltyUpdate,
		TemplateName:       template,
		TemplateParameters: params,
	})
}

// List returns notification history, newest first.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) ([]models.Notification, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if input.CustomerID != "" {
		query = query.Where("customer_id = ?", input.CustomerID)
	}
	if input.OrderID != "" {
		query = query.Where("order_id = ?", input.OrderID)
	}
	if input.TemplateID != "" {
		query = query.Where("template_id = ?", input.TemplateID)
	}
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.Type != "" {
		query = query.Where("type = ?", input.Type)
	}
	if input.Since != nil {
		query = query.Where("created_at >= ?", *input.Since)
	}
	if input.Until != nil {
		query = query.Where("created_at <= ?", *input.Until)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: count notifications: %w", err)
	}

	limit := input.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []models.Notification
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(input.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, total, nil
}

// Get loads a single notification by id.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	return &notification, nil
}

// CleanupOlderThan deletes notifications created before the retention
// window. Pending rows are kept regardless of age.
func (s *NotificationService) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	ctx = ensureContext(ctx)

	if days <= 0 {
		return 0, apperrors.NewBadRequest("retention days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND status <> ?", cutoff, models.StatusPending).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: cleanup notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
