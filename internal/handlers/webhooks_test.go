package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/laundrypro/server/internal/database/testutil"
	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/internal/whatsapp"
	"github.com/laundrypro/server/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newWebhookHandlerForTest(t *testing.T, cfg whatsapp.Config) (*WebhookHandler, *gin.Engine) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler, err := NewWebhookHandler(db, whatsapp.NewClient(cfg))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/webhooks/whatsapp", handler.Verify)
	r.POST("/api/webhooks/whatsapp", handler.Receive)
	return handler, r
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifyEchoesChallenge(t *testing.T) {
	_, r := newWebhookHandlerForTest(t, whatsapp.Config{WebhookVerifyToken: "verify-me"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=4242", nil)
	r.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "4242", recorder.Body.String())
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	_, r := newWebhookHandlerForTest(t, whatsapp.Config{WebhookVerifyToken: "verify-me"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=4242", nil)
	r.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestWebhookReceiveSignedPayload(t *testing.T) {
	secret := "app-secret"
	handler, r := newWebhookHandlerForTest(t, whatsapp.Config{AppSecret: secret})

	body := []byte(`{"entry":[]}`)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(secret, body))
	r.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Success)

	// The raw payload is kept for audit.
	rows, total, err := handler.Service().ListEvents(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.JSONEq(t, string(body), string(rows[0].RawData))
}

func TestWebhookReceiveRejectsBadSignature(t *testing.T) {
	handler, r := newWebhookHandlerForTest(t, whatsapp.Config{AppSecret: "app-secret"})

	body := []byte(`{"entry":[]}`)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody("other-secret", body))
	r.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusForbidden, recorder.Code)

	// Rejected payloads are not stored.
	_, total, err := handler.Service().ListEvents(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestWebhookReceiveUpdatesNotification(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler, err := NewWebhookHandler(db, whatsapp.NewClient(whatsapp.Config{}))
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/webhooks/whatsapp", handler.Receive)

	customer := models.Customer{Name: "Hooked", Phone: "919800000300", IsActive: true}
	require.NoError(t, db.Create(&customer).Error)
	messageID := "wamid.webhook"
	notification := models.Notification{
		CustomerID:        customer.ID,
		Type:              models.NotificationCustom,
		RecipientPhone:    customer.Phone,
		MessageText:       "hello",
		Status:            models.StatusSent,
		WhatsAppMessageID: &messageID,
	}
	require.NoError(t, db.Create(&notification).Error)

	body := []byte(`{
		"entry": [{
			"changes": [{
				"field": "messages",
				"value": {"statuses": [{"id": "wamid.webhook", "status": "delivered", "timestamp": "1735689600"}]}
			}]
		}]
	}`)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", bytes.NewReader(body))
	r.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", notification.ID).Error)
	require.Equal(t, models.StatusDelivered, stored.Status)
}
