package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/services"
	"github.com/laundrypro/server/internal/whatsapp"
	appErrors "github.com/laundrypro/server/pkg/errors"
	"github.com/laundrypro/server/pkg/metrics"
	"github.com/laundrypro/server/pkg/response"
)

// WebhookHandler receives delivery receipts and inbound messages from the
// WhatsApp Business platform.
type WebhookHandler struct {
	service *services.WebhookService
	channel *whatsapp.Client
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(db *gorm.DB, channel *whatsapp.Client) (*WebhookHandler, error) {
	service, err := services.NewWebhookService(db)
	if err != nil {
		return nil, err
	}
	return &WebhookHandler{service: service, channel: channel}, nil
}

// Service exposes the underlying webhook service for scheduler wiring.
func (h *WebhookHandler) Service() *services.WebhookService {
	return h.service
}

// Verify answers the platform's subscription handshake. The challenge must
// be echoed back as plain text on success.
func (h *WebhookHandler) Verify(c *gin.Context) {
	challenge, ok := h.channel.VerifySubscription(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if !ok {
		metrics.WebhookEvents.WithLabelValues("verify_failed").Inc()
		response.Error(c, appErrors.ErrWebhookAuth)
		return
	}

	c.String(http.StatusOK, challenge)
}

// Receive authenticates and ingests a webhook event. The signature check
// runs over the raw body before any parsing.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unable to read request body"))
		return
	}

	if !h.channel.VerifySignature(raw, c.GetHeader("X-Hub-Signature-256")) {
		metrics.WebhookEvents.WithLabelValues("auth_failed").Inc()
		response.Error(c, appErrors.ErrWebhookAuth)
		return
	}

	if err := h.service.ProcessEvent(c.Request.Context(), raw); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"received": true})
}

// ListEvents returns recent webhook events for troubleshooting.
func (h *WebhookHandler) ListEvents(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)

	rows, total, err := h.service.ListEvents(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, &response.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}
