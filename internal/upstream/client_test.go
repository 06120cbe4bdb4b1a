package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendMessageEnvelope(t *testing.T) {
	var captured struct {
		path    string
		auth    string
		payload map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"done"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	result, err := client.SendMessage(context.Background(), "proj-1", "upstream-session", &ChatRequest{
		Message:  "hello",
		ChatOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/projects/proj-1/chat", captured.path)
	assert.Equal(t, "Bearer upstream-session", captured.auth)

	assert.Equal(t, "hello", captured.payload["message"])
	assert.Equal(t, true, captured.payload["chat_only"])
	assert.Equal(t, false, captured.payload["debug_mode"])
	assert.Equal(t, "preview", captured.payload["view"])
	assert.Equal(t, "/", captured.payload["current_page"])
	assert.Equal(t, []any{}, captured.payload["files"])
	assert.Equal(t, []any{}, captured.payload["selected_elements"])
	assert.Nil(t, captured.payload["model"])

	msgID, ok := captured.payload["ai_message_id"].(string)
	require.True(t, ok)
	assert.Contains(t, msgID, "aimsg_")

	assert.Equal(t, "done", result.Text())
}

func TestSendMessagePlainTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok then"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	result, err := client.SendMessage(context.Background(), "proj-1", "cred", &ChatRequest{Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"text": "ok then"}, result.Payload)
	assert.Equal(t, "ok then", result.Text())
}

func TestSendMessageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zap.NewNop())

	_, err := client.SendMessage(context.Background(), "proj-1", "cred", &ChatRequest{Message: "hi"})
	require.Error(t, err)

	var upstreamErr *Error
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
	assert.Equal(t, "rate limited", upstreamErr.Error())
	assert.Equal(t, "rate limited", upstreamErr.Payload["error"])
}
