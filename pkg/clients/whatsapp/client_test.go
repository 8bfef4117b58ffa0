package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/knittrack/internal/config"
	"github.com/mamadbah2/knittrack/internal/domain/models"
)

func TestSendTextMessage(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.WhatsAppConfig{AccessToken: "secret", PhoneNumberID: "123", BaseURL: srv.URL + "/", APIVersion: "v20.0"})
	resp, err := client.SendTextMessage(context.Background(), models.OutboundMessageRequest{To: "905551112233", Message: "M-07 at 7.00%"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", resp.MessageID())
	assert.Equal(t, "whatsapp", payload["messaging_product"])
	assert.Equal(t, "905551112233", payload["to"])
	assert.Equal(t, "text", payload["type"])
	assert.Equal(t, map[string]any{"body": "M-07 at 7.00%", "preview_url": false}, payload["text"])
}

func TestSendTextMessage_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.WhatsAppConfig{AccessToken: "bad", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v20.0"})
	_, err := client.SendTextMessage(context.Background(), models.OutboundMessageRequest{To: "1", Message: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 190, apiErr.Code)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestSendTextMessage_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.2"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.WhatsAppConfig{AccessToken: "secret", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v20.0"})
	resp, err := client.SendTextMessage(context.Background(), models.OutboundMessageRequest{To: "1", Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.2", resp.MessageID())
	assert.EqualValues(t, 2, calls.Load())
}

func TestSendTextMessage_RejectionIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Recipient phone number not in allowed list","code":131030}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.WhatsAppConfig{AccessToken: "secret", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v20.0"})
	_, err := client.SendTextMessage(context.Background(), models.OutboundMessageRequest{To: "1", Message: "x"})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
