package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"go.uber.org/zap"
)

const expireBatchSize = 1000

// LicenseExpireHandler reconciles the stored is_active flag for
// licenses whose expiry has passed. Validation on read stays
// authoritative; this sweep only keeps the stored flag honest for
// anything that looks at the table directly.
type LicenseExpireHandler struct {
	repo   license.Repository
	logger *zap.Logger
}

func NewLicenseExpireHandler(repo license.Repository, logger *zap.Logger) *LicenseExpireHandler {
	return &LicenseExpireHandler{
		repo:   repo,
		logger: logger.Named("LicenseExpireHandler"),
	}
}

func (h *LicenseExpireHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeLicenseExpire {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpireLicensePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for license expiration task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	h.logger.Info("Processing license expiration check task...")

	now := time.Now().UTC()
	deactivatedCount := 0

	for {
		expired, err := h.repo.ListExpired(ctx, now, expireBatchSize)
		if err != nil {
			h.logger.Error("Failed to list expired licenses", zap.Error(err))
			return fmt.Errorf("repository error listing expired licenses: %w", err)
		}

		if len(expired) == 0 {
			break
		}

		for _, lic := range expired {
			h.logger.Info("Found expired license, deactivating",
				zap.String("license_id", lic.ID.String()),
				zap.String("license_key", lic.LicenseKey),
				zap.Time("expires_at", lic.ExpiresAt.Time),
			)

			if errDeactivate := h.repo.Deactivate(ctx, lic.LicenseKey); errDeactivate != nil {
				h.logger.Error("Failed to deactivate expired license",
					zap.String("license_id", lic.ID.String()),
					zap.Error(errDeactivate),
				)
			} else {
				deactivatedCount++
			}
		}

		if len(expired) < expireBatchSize {
			break
		}
	}

	h.logger.Info("License expiration check task finished", zap.Int("deactivated", deactivatedCount))
	return nil
}
