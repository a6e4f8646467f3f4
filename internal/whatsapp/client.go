package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/laundrypro/server/pkg/logger"
	"github.com/laundrypro/server/pkg/metrics"
)

// ErrDisabledMessage is the fixed error text returned when the channel is not
// configured; callers rely on it to distinguish configuration from provider
// failures.
const ErrDisabledMessage = "WhatsApp notifications disabled"

const defaultRequestTimeout = 15 * time.Second

// Config captures the WhatsApp Business API connection settings.
type Config struct {
	Enabled            bool
	APIURL             string
	AccessToken        string
	PhoneNumberID      string
	BusinessAccountID  string
	WebhookVerifyToken string
	AppSecret          string
	// DefaultCountryCode is prefixed onto domestic-length numbers that carry
	// no country code.
	DefaultCountryCode string
	Timeout            time.Duration
}

// SendResult is the outcome of a single outbound provider call. Provider and
// network failures are captured here rather than surfaced as Go errors so the
// dispatch layer can record them on the notification.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ButtonParameter configures a single dynamic button component.
type ButtonParameter struct {
	SubType    string           `json:"sub_type"`
	Index      int              `json:"index"`
	Parameters []map[string]any `json:"parameters"`
}

// TemplateMessage describes a template-based outbound message.
type TemplateMessage struct {
	To           string
	TemplateName string
	LanguageCode string
	BodyParams   []string
	HeaderParams []string
	ButtonParams []ButtonParameter
}

// Client sends messages through the WhatsApp Business "send message" endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// NewClient constructs a Client from configuration.
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://graph.facebook.com/v18.0"
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = "91"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}

	log := logger.WithModule("whatsapp")
	if !cfg.Enabled {
		log.Warn("whatsapp notifications are disabled")
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Enabled reports whether the channel is configured for real delivery.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// SendTemplate sends a pre-approved template message.
func (c *Client) SendTemplate(ctx context.Context, msg TemplateMessage) SendResult {
	if !c.cfg.Enabled {
		c.log.Info("whatsapp disabled, skipping template send",
			zap.String("template", msg.TemplateName),
			zap.String("to", msg.To),
		)
		return SendResult{Success: false, Error: ErrDisabledMessage}
	}

	language := msg.LanguageCode
	if language == "" {
		language = "en"
	}

	template := map[string]any{
		"name":     msg.TemplateName,
		"language": map[string]any{"code": language},
	}

	var components []map[string]any
	if len(msg.HeaderParams) > 0 {
		components = append(components, map[string]any{
			"type":       "header",
			"parameters": textParameters(msg.HeaderParams),
		})
	}
	if len(msg.BodyParams) > 0 {
		components = append(components, map[string]any{
			"type":       "body",
			"parameters": textParameters(msg.BodyParams),
		})
	}
	for _, button := range msg.ButtonParams {
		subType := button.SubType
		if subType == "" {
			subType = "quick_reply"
		}
		components = append(components, map[string]any{
			"type":       "button",
			"sub_type":   subType,
			"index":      button.Index,
			"parameters": button.Parameters,
		})
	}
	if len(components) > 0 {
		template["components"] = components
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                c.NormalizePhone(msg.To),
		"type":              "template",
		"template":          template,
	}

	return c.post(ctx, payload, "template")
}

// SendText sends a free-form text message.
func (c *Client) SendText(ctx context.Context, to, body string) SendResult {
	if !c.cfg.Enabled {
		c.log.Info("whatsapp disabled, skipping text send", zap.String("to", to))
		return SendResult{Success: false, Error: ErrDisabledMessage}
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                c.NormalizePhone(to),
		"type":              "text",
		"text":              map[string]any{"body": body},
	}

	return c.post(ctx, payload, "text")
}

// NormalizePhone strips non-digit characters and applies the default country
// code to domestic-length numbers.
func (c *Client) NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	clean := digits.String()
	code := c.cfg.DefaultCountryCode

	switch {
	case strings.HasPrefix(clean, "0"):
		clean = code + strings.TrimPrefix(clean, "0")
	case len(clean) == 10 && !strings.HasPrefix(clean, code):
		clean = code + clean
	}

	return clean
}

func (c *Client) post(ctx context.Context, payload map[string]any, kind string) SendResult {
	start := time.Now()
	defer func() {
		metrics.ChannelSendDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{Success: false, Error: fmt.Sprintf("encode payload: %v", err)}
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("whatsapp request failed", zap.String("kind", kind), zap.Error(err))
		return SendResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Error("whatsapp response decode failed", zap.Error(err))
		return SendResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}
	}

	if resp.StatusCode == http.StatusOK && len(parsed.Messages) > 0 {
		id := parsed.Messages[0].ID
		c.log.Info("whatsapp message sent", zap.String("kind", kind), zap.String("message_id", id))
		return SendResult{Success: true, MessageID: id}
	}

	errMsg := parsed.Error.Message
	if errMsg == "" {
		errMsg = fmt.Sprintf("unexpected provider response (status %d)", resp.StatusCode)
	}
	c.log.Error("whatsapp api error", zap.String("kind", kind), zap.String("error", errMsg))
	return SendResult{Success: false, Error: errMsg}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func textParameters(values []string) []map[string]any {
	params := make([]map[string]any, 0, len(values))
	for _, value := range values {
		params = append(params, map[string]any{"type": "text", "text": value})
	}
	return params
}
