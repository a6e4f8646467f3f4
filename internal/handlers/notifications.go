package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/internal/queue"
	"github.com/laundrypro/server/internal/services"
	appErrors "github.com/laundrypro/server/pkg/errors"
	"github.com/laundrypro/server/pkg/response"
)

// Queue operation names used for fire-and-forget submissions.
const (
	OpSendBulk     = "notifications.send_bulk"
	OpOrderTrigger = "notifications.order_trigger"
)

// NotificationHandler exposes HTTP endpoints for the notification pipeline.
type NotificationHandler struct {
	service *services.NotificationService
	tasks   queue.Queue
}

// NewNotificationHandler constructs a notification handler. The queue may be
// nil, in which case every request is handled synchronously.
func NewNotificationHandler(db *gorm.DB, sender services.MessageSender, tasks queue.Queue) (*NotificationHandler, error) {
	service, err := services.NewNotificationService(db, sender)
	if err != nil {
		return nil, err
	}
	return &NotificationHandler{service: service, tasks: tasks}, nil
}

// Service exposes the underlying notification service for queue wiring.
func (h *NotificationHandler) Service() *services.NotificationService {
	return h.service
}

type sendRequest struct {
	CustomerID         string     `json:"customer_id" validate:"required"`
	NotificationType   string     `json:"notification_type" validate:"required"`
	TemplateName       string     `json:"template_name"`
	TemplateParameters []string   `json:"template_parameters"`
	HeaderParameters   []string   `json:"header_parameters"`
	CustomMessage      string     `json:"custom_message"`
	OrderID            *string    `json:"order_id"`
	ScheduledAt        *time.Time `json:"scheduled_at"`
}

// Send dispatches a single notification synchronously.
func (h *NotificationHandler) Send(c *gin.Context) {
	var payload sendRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	outcome, err := h.service.Send(c.Request.Context(), services.SendNotificationInput{
		CustomerID:         payload.CustomerID,
		Type:               models.NotificationType(payload.NotificationType),
		TemplateName:       payload.TemplateName,
		TemplateParameters: payload.TemplateParameters,
		HeaderParameters:   payload.HeaderParameters,
		CustomMessage:      payload.CustomMessage,
		OrderID:            payload.OrderID,
		ScheduledAt:        payload.ScheduledAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// BulkRequest is the payload for bulk sends. It doubles as the queue task
// payload for asynchronous submissions.
type BulkRequest struct {
	CustomerIDs        []string `json:"customer_ids" validate:"required,min=1"`
	NotificationType   string   `json:"notification_type" validate:"required"`
	TemplateName       string   `json:"template_name"`
	TemplateParameters []string `json:"template_parameters"`
	CustomMessage      string   `json:"custom_message"`
	Async              bool     `json:"async"`
}

// SendBulk dispatches the same message to many customers. With async=true
// and a queue configured, the work is accepted and processed in the
// background.
func (h *NotificationHandler) SendBulk(c *gin.Context) {
	var payload BulkRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if payload.Async && h.tasks != nil {
		if err := h.tasks.Enqueue(c.Request.Context(), OpSendBulk, payload); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusAccepted, gin.H{"queued": true, "total": len(payload.CustomerIDs)})
		return
	}

	report, err := h.service.SendBulk(c.Request.Context(), services.BulkNotificationInput{
		CustomerIDs:        payload.CustomerIDs,
		Type:               models.NotificationType(payload.NotificationType),
		TemplateName:       payload.TemplateName,
		TemplateParameters: payload.TemplateParameters,
		CustomMessage:      payload.CustomMessage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// OrderTriggerRequest names an order lifecycle event to notify about. It
// doubles as the queue task payload.
type OrderTriggerRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Event   string `json:"event" validate:"required"`
	Async   bool   `json:"async"`
}

// OrderTrigger sends the notification matching an order lifecycle event.
func (h *NotificationHandler) OrderTrigger(c *gin.Context) {
	var payload OrderTriggerRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if payload.Async && h.tasks != nil {
		if err := h.tasks.Enqueue(c.Request.Context(), OpOrderTrigger, payload); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusAccepted, gin.H{"queued": true})
		return
	}

	outcome, err := h.service.SendOrderNotification(c.Request.Context(), payload.OrderID, services.OrderEvent(payload.Event))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

type loyaltyRequest struct {
	CustomerID   string `json:"customer_id" validate:"required"`
	PointsEarned int    `json:"points_earned"`
	NewTier      string `json:"new_tier"`
}

// Loyalty sends a loyalty points or tier upgrade notification.
func (h *NotificationHandler) Loyalty(c *gin.Context) {
	var payload loyaltyRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	outcome, err := h.service.SendLoyaltyNotification(c.Request.Context(), payload.CustomerID, payload.PointsEarned, payload.NewTier)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, outcome)
}

// RetryFailed re-attempts failed notifications below the retry ceiling.
func (h *NotificationHandler) RetryFailed(c *gin.Context) {
	maxRetries := parseIntQuery(c, "max_retries", 3)

	report, err := h.service.RetryFailed(c.Request.Context(), maxRetries)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// Stats returns aggregate delivery statistics.
func (h *NotificationHandler) Stats(c *gin.Context) {
	days := parseIntQuery(c, "days", 30)
	customerID := strings.TrimSpace(c.Query("customer_id"))

	stats, err := h.service.Stats(c.Request.Context(), days, customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// List returns notification history with filters and pagination.
func (h *NotificationHandler) List(c *gin.Context) {
	input := services.ListNotificationsInput{
		CustomerID: strings.TrimSpace(c.Query("customer_id")),
		OrderID:    strings.TrimSpace(c.Query("order_id")),
		TemplateID: strings.TrimSpace(c.Query("template_id")),
		Status:     models.MessageStatus(strings.TrimSpace(c.Query("status"))),
		Type:       models.NotificationType(strings.TrimSpace(c.Query("notification_type"))),
		Limit:      parseIntQuery(c, "limit", 50),
		Offset:     parseIntQuery(c, "offset", 0),
	}
	if since, ok := parseTimeQuery(c, "since"); ok {
		input.Since = &since
	}
	if until, ok := parseTimeQuery(c, "until"); ok {
		input.Until = &until
	}

	rows, total, err := h.service.List(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, &response.Meta{
		Limit:  input.Limit,
		Offset: input.Offset,
		Total:  total,
	})
}

// Get returns one notification by id.
func (h *NotificationHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.NewBadRequest("notification id is required"))
		return
	}

	notification, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, notification)
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
