package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luvproxy/chat-proxy-api/internal/domain/history"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"go.uber.org/zap"
)

// SyncService manages per-(license, project) chat transcripts. Saves
// replace the stored message list wholesale; callers always send the
// full desired transcript.
type SyncService struct {
	history history.Repository
	logger  *zap.Logger
}

func NewSyncService(historyRepo history.Repository, logger *zap.Logger) *SyncService {
	return &SyncService{
		history: historyRepo,
		logger:  logger.Named("SyncService"),
	}
}

func (s *SyncService) Save(ctx context.Context, licenseKey, projectID string, messages json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(messages)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, fmt.Errorf("%w: messages must be an array", ierr.ErrValidation)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(messages, &items); err != nil {
		return 0, fmt.Errorf("%w: messages must be an array", ierr.ErrValidation)
	}

	if err := s.history.Upsert(ctx, licenseKey, projectID, messages); err != nil {
		s.logger.Error("Failed to save chat history",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Debug("Chat history saved",
		zap.String("license_key", licenseKey),
		zap.String("project_id", projectID),
		zap.Int("count", len(items)),
	)
	return len(items), nil
}

// Load returns the stored transcript. A missing record is an empty
// transcript, not an error.
func (s *SyncService) Load(ctx context.Context, licenseKey, projectID string) (json.RawMessage, int, *time.Time, error) {
	rec, err := s.history.Find(ctx, licenseKey, projectID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return json.RawMessage("[]"), 0, nil, nil
		}
		s.logger.Error("Failed to load chat history",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return nil, 0, nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rec.Messages, &items); err != nil {
		s.logger.Warn("Stored chat history is not a valid array, returning empty",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return json.RawMessage("[]"), 0, &rec.UpdatedAt, nil
	}

	return rec.Messages, len(items), &rec.UpdatedAt, nil
}

func (s *SyncService) Clear(ctx context.Context, licenseKey, projectID string) error {
	if err := s.history.Delete(ctx, licenseKey, projectID); err != nil {
		s.logger.Error("Failed to clear chat history",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}
	return nil
}
