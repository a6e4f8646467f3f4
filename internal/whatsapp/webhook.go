package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySubscription validates a webhook subscription handshake. It returns
// the challenge to echo back, or false when the mode or token does not match.
func (c *Client) VerifySubscription(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" {
		return "", false
	}
	if c.cfg.WebhookVerifyToken == "" || token != c.cfg.WebhookVerifyToken {
		return "", false
	}
	return challenge, true
}

// VerifySignature checks the X-Hub-Signature-256 header against an
// HMAC-SHA256 of the raw payload. When no app secret is configured,
// verification is skipped and every payload is accepted; this is an
// intentionally permissive fallback for environments without a secret.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if c.cfg.AppSecret == "" {
		return true
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.AppSecret))
	mac.Write(payload)

	return hmac.Equal(provided, mac.Sum(nil))
}
