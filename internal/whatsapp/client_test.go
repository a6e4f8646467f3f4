package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	client := NewClient(Config{DefaultCountryCode: "91"})

	cases := []struct {
		in   string
		want string
	}{
		{"+91 98765 43210", "919876543210"},
		{"9876543210", "919876543210"},
		{"09876543210", "919876543210"},
		{"919876543210", "919876543210"},
		{"(+44) 7911 123456", "447911123456"},
		{"98-76-54-32-10", "919876543210"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, client.NormalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestDisabledClientShortCircuits(t *testing.T) {
	client := NewClient(Config{Enabled: false})

	result := client.SendText(context.Background(), "919876543210", "hello")
	require.False(t, result.Success)
	require.Equal(t, ErrDisabledMessage, result.Error)

	result = client.SendTemplate(context.Background(), TemplateMessage{
		To:           "919876543210",
		TemplateName: "order_confirmation",
	})
	require.False(t, result.Success)
	require.Equal(t, ErrDisabledMessage, result.Error)
}

func TestSendTemplateRequestShape(t *testing.T) {
	var captured map[string]any
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.abc"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		Enabled:       true,
		APIURL:        server.URL,
		AccessToken:   "token-123",
		PhoneNumberID: "555",
	})

	result := client.SendTemplate(context.Background(), TemplateMessage{
		To:           "9876543210",
		TemplateName: "order_confirmation",
		LanguageCode: "en",
		BodyParams:   []string{"Asha", "LP-1"},
		HeaderParams: []string{"header"},
	})
	require.True(t, result.Success)
	require.Equal(t, "wamid.abc", result.MessageID)
	require.Equal(t, "Bearer token-123", authHeader)

	require.Equal(t, "whatsapp", captured["messaging_product"])
	require.Equal(t, "919876543210", captured["to"])
	require.Equal(t, "template", captured["type"])

	template := captured["template"].(map[string]any)
	require.Equal(t, "order_confirmation", template["name"])

	components := template["components"].([]any)
	require.Len(t, components, 2)
	header := components[0].(map[string]any)
	require.Equal(t, "header", header["type"])
	body := components[1].(map[string]any)
	require.Equal(t, "body", body["type"])
	params := body["parameters"].([]any)
	require.Len(t, params, 2)
	first := params[0].(map[string]any)
	require.Equal(t, "text", first["type"])
	require.Equal(t, "Asha", first["text"])
}

func TestSendTextProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid recipient"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		Enabled:       true,
		APIURL:        server.URL,
		AccessToken:   "token",
		PhoneNumberID: "555",
	})

	result := client.SendText(context.Background(), "123", "hello")
	require.False(t, result.Success)
	require.Equal(t, "Invalid recipient", result.Error)
}

func TestSendTextNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // trigger connection refused

	client := NewClient(Config{
		Enabled:       true,
		APIURL:        server.URL,
		AccessToken:   "token",
		PhoneNumberID: "555",
	})

	result := client.SendText(context.Background(), "123", "hello")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}
