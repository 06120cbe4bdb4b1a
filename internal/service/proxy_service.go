package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luvproxy/chat-proxy-api/internal/domain/usagelog"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/upstream"
	"go.uber.org/zap"
)

// ProxyService relays one chat message per call to the upstream API on
// behalf of an authenticated license. The session token only proves the
// license was valid at issuance; the license is re-validated here
// because it can change state between issuance and use.
type ProxyService struct {
	licenses *LicenseService
	usage    *UsageService
	upstream *upstream.Client
	logger   *zap.Logger
}

func NewProxyService(licenses *LicenseService, usage *UsageService, upstreamClient *upstream.Client, logger *zap.Logger) *ProxyService {
	return &ProxyService{
		licenses: licenses,
		usage:    usage,
		upstream: upstreamClient,
		logger:   logger.Named("ProxyService"),
	}
}

type ForwardRequest struct {
	ProjectID    string
	SessionToken string // upstream credential, forwarded as-is
	Message      string
	Files        []any
	ChatOnly     bool
}

type ForwardResult struct {
	Response      string
	Raw           map[string]any
	RequestsToday int
	RequestsTotal int64
}

func (s *ProxyService) Forward(ctx context.Context, licenseKey string, req *ForwardRequest) (*ForwardResult, error) {
	// Re-validation happens before field checks, the upstream call and
	// any accounting.
	if _, err := s.licenses.Resolve(ctx, licenseKey); err != nil {
		return nil, err
	}

	if req.ProjectID == "" || req.SessionToken == "" || req.Message == "" {
		return nil, fmt.Errorf("%w: project_id, session_token and message are required", ierr.ErrValidation)
	}

	result, err := s.upstream.SendMessage(ctx, req.ProjectID, req.SessionToken, &upstream.ChatRequest{
		Message:  req.Message,
		Files:    req.Files,
		ChatOnly: req.ChatOnly,
	})
	if err != nil {
		var upstreamErr *upstream.Error
		if errors.As(err, &upstreamErr) {
			// No accounting for failed upstream calls; the failure is
			// passed through to the caller unaltered.
			s.usage.LogEvent(ctx, licenseKey, req.ProjectID, usagelog.ActionProxyError, map[string]any{
				"status":  upstreamErr.StatusCode,
				"error":   upstreamErr.Payload,
				"message": TruncateMessage(req.Message),
			})
			return nil, err
		}

		s.logger.Error("Upstream call failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	requestsToday, requestsTotal, err := s.usage.RecordUsage(ctx, licenseKey, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to record usage: %v", ierr.ErrInternalServer, err)
	}

	s.usage.LogEvent(ctx, licenseKey, req.ProjectID, usagelog.ActionProxySuccess, map[string]any{
		"message":     TruncateMessage(req.Message),
		"chat_only":   req.ChatOnly,
		"files_count": len(req.Files),
	})

	return &ForwardResult{
		Response:      result.Text(),
		Raw:           result.Payload,
		RequestsToday: requestsToday,
		RequestsTotal: requestsTotal,
	}, nil
}
