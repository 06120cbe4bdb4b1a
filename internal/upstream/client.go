// Package upstream implements the client for the third-party chat API
// that actually generates AI responses. The service relays exactly one
// request per proxied call and passes upstream failures through to the
// caller with their original status code and payload.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.lovable.dev"
	DefaultTimeout = 120 * time.Second

	userAgent = "Lovable-Pro-Extension/1.0"
)

// HTTPClient is the subset of http.Client the chat client needs,
// extracted so tests can substitute a double.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	client  HTTPClient
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("UpstreamClient"),
	}
}

// NewClientWithHTTP is used by tests to inject an HTTPClient double.
func NewClientWithHTTP(baseURL string, httpClient HTTPClient, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
		logger:  logger.Named("UpstreamClient"),
	}
}

// ChatRequest carries the caller-supplied parts of a chat message. The
// remaining envelope fields the upstream API expects are filled with
// their fixed defaults.
type ChatRequest struct {
	Message  string
	Files    []any
	ChatOnly bool
}

// chatEnvelope is the fixed request shape of the upstream chat API.
type chatEnvelope struct {
	ID                  string   `json:"id"`
	Message             string   `json:"message"`
	Files               []any    `json:"files"`
	SelectedElements    []any    `json:"selected_elements"`
	ChatOnly            bool     `json:"chat_only"`
	DebugMode           bool     `json:"debug_mode"`
	View                string   `json:"view"`
	ViewDescription     string   `json:"view_description"`
	OptimisticImageURLs []string `json:"optimisticImageUrls"`
	AIMessageID         string   `json:"ai_message_id"`
	CurrentPage         string   `json:"current_page"`
	Model               *string  `json:"model"`
	SessionReplay       *string  `json:"session_replay"`
	ClientLogs          []any    `json:"client_logs"`
	NetworkRequests     []any    `json:"network_requests"`
	RuntimeErrors       []any    `json:"runtime_errors"`
}

// ChatResult is a normalized 2xx upstream response. Payload holds the
// decoded JSON body, or {"text": <raw body>} for non-JSON responses.
type ChatResult struct {
	StatusCode int
	Payload    map[string]any
}

// Text extracts the human-readable part of the upstream payload.
func (r *ChatResult) Text() string {
	if msg, ok := r.Payload["message"].(string); ok && msg != "" {
		return msg
	}
	if txt, ok := r.Payload["text"].(string); ok && txt != "" {
		return txt
	}
	return "Message sent successfully"
}

// Error is a non-2xx upstream response, surfaced to the caller with the
// original status code and payload.
type Error struct {
	StatusCode int
	Payload    map[string]any
}

func (e *Error) Error() string {
	if msg, ok := e.Payload["error"].(string); ok && msg != "" {
		return msg
	}
	if txt, ok := e.Payload["text"].(string); ok && txt != "" {
		return txt
	}
	return fmt.Sprintf("upstream API error (status %d)", e.StatusCode)
}

// SendMessage issues the single synchronous chat call for a proxied
// request. credential is the caller's upstream session token, sent as a
// bearer credential; it is unrelated to this service's own JWTs.
func (c *Client) SendMessage(ctx context.Context, projectID, credential string, req *ChatRequest) (*ChatResult, error) {
	files := req.Files
	if files == nil {
		files = []any{}
	}

	envelope := chatEnvelope{
		ID:                  "",
		Message:             req.Message,
		Files:               files,
		SelectedElements:    []any{},
		ChatOnly:            req.ChatOnly,
		DebugMode:           false,
		View:                "preview",
		ViewDescription:     "The user is currently viewing the preview.",
		OptimisticImageURLs: []string{},
		AIMessageID:         newMessageID(),
		CurrentPage:         "/",
		Model:               nil,
		SessionReplay:       nil,
		ClientLogs:          []any{},
		NetworkRequests:     []any{},
		RuntimeErrors:       []any{},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat envelope: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/chat", c.baseURL, projectID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("Upstream request failed", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := decodePayload(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Upstream returned non-2xx status",
			zap.String("project_id", projectID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &Error{StatusCode: resp.StatusCode, Payload: payload}
	}

	return &ChatResult{StatusCode: resp.StatusCode, Payload: payload}, nil
}

// decodePayload classifies the upstream body by content type: JSON is
// parsed as structured data, anything else is wrapped as raw text.
func decodePayload(resp *http.Response) (map[string]any, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return map[string]any{"text": string(raw)}, nil
		}
		return payload, nil
	}
	return map[string]any{"text": string(raw)}, nil
}

func newMessageID() string {
	return fmt.Sprintf("aimsg_%d%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}
