package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"github.com/luvproxy/chat-proxy-api/internal/domain/usagelog"
	"go.uber.org/zap"
)

// UsageService owns request accounting and the audit log. Counter
// updates go through the repository's atomic increment; audit writes
// are best-effort and never abort the calling operation.
type UsageService struct {
	licenses license.Repository
	logs     usagelog.Repository
	logger   *zap.Logger
}

func NewUsageService(licenses license.Repository, logs usagelog.Repository, logger *zap.Logger) *UsageService {
	return &UsageService{
		licenses: licenses,
		logs:     logs,
		logger:   logger.Named("UsageService"),
	}
}

// RecordUsage applies the daily-rollover counter update for one
// successful proxied call and returns the updated counters.
func (s *UsageService) RecordUsage(ctx context.Context, licenseKey string, now time.Time) (int, int64, error) {
	requestsToday, requestsTotal, err := s.licenses.IncrementUsage(ctx, licenseKey, now)
	if err != nil {
		s.logger.Error("Failed to record usage", zap.String("license_key", licenseKey), zap.Error(err))
		return 0, 0, err
	}

	s.logger.Debug("Usage recorded",
		zap.String("license_key", licenseKey),
		zap.Int("requests_today", requestsToday),
		zap.Int64("requests_total", requestsTotal),
	)
	return requestsToday, requestsTotal, nil
}

// LogEvent appends an audit entry. Failures are logged and swallowed.
func (s *UsageService) LogEvent(ctx context.Context, licenseKey, projectID string, action usagelog.Action, metadata any) {
	var rawMeta json.RawMessage
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			s.logger.Warn("Failed to marshal usage log metadata",
				zap.String("license_key", licenseKey),
				zap.String("action", string(action)),
				zap.Error(err),
			)
		} else {
			rawMeta = data
		}
	}

	entry := &usagelog.Entry{
		LicenseKey: licenseKey,
		ProjectID:  projectID,
		Action:     action,
		Metadata:   rawMeta,
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append usage log entry, continuing",
			zap.String("license_key", licenseKey),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

// TruncateMessage shortens audit-log message snippets the same way the
// proxy always has: the first 100 characters.
func TruncateMessage(msg string) string {
	if len(msg) > 100 {
		return msg[:100]
	}
	return msg
}
