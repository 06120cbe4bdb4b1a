package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luvproxy/chat-proxy-api/internal/domain/usagelog"
	"go.uber.org/zap"
)

type UsageLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUsageLogRepository(db *pgxpool.Pool, logger *zap.Logger) *UsageLogRepository {
	return &UsageLogRepository{
		db:     db,
		logger: logger.Named("UsageLogRepository"),
	}
}

var _ usagelog.Repository = (*UsageLogRepository)(nil)

func (r *UsageLogRepository) Append(ctx context.Context, entry *usagelog.Entry) error {
	query := `
        INSERT INTO usage_logs (license_key, project_id, action, metadata)
        VALUES ($1, NULLIF($2, ''), $3, $4)
    `

	_, err := r.db.Exec(ctx, query, entry.LicenseKey, entry.ProjectID, entry.Action, entry.Metadata)
	if err != nil {
		r.logger.Error("Failed to append usage log entry",
			zap.String("license_key", entry.LicenseKey),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return fmt.Errorf("database error on append usage log: %w", err)
	}

	return nil
}
