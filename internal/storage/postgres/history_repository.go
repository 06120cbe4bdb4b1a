package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luvproxy/chat-proxy-api/internal/domain/history"
	"go.uber.org/zap"
)

type HistoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHistoryRepository(db *pgxpool.Pool, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger.Named("HistoryRepository"),
	}
}

var _ history.Repository = (*HistoryRepository)(nil)

func (r *HistoryRepository) Upsert(ctx context.Context, licenseKey, projectID string, messages json.RawMessage) error {
	query := `
        INSERT INTO chat_history (license_key, project_id, messages, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (license_key, project_id)
        DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()
    `

	_, err := r.db.Exec(ctx, query, licenseKey, projectID, messages)
	if err != nil {
		r.logger.Error("Failed to upsert chat history",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return fmt.Errorf("database error on upsert chat history: %w", err)
	}

	return nil
}

func (r *HistoryRepository) Find(ctx context.Context, licenseKey, projectID string) (*history.Record, error) {
	query := `
        SELECT id, license_key, project_id, messages, updated_at
        FROM chat_history
        WHERE license_key = $1 AND project_id = $2
    `

	row := r.db.QueryRow(ctx, query, licenseKey, projectID)

	var rec history.Record
	err := row.Scan(&rec.ID, &rec.LicenseKey, &rec.ProjectID, &rec.Messages, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, history.ErrNotFound
		}
		r.logger.Error("Failed to scan chat history row",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("database scan error on chat history: %w", err)
	}

	return &rec, nil
}

func (r *HistoryRepository) Delete(ctx context.Context, licenseKey, projectID string) error {
	query := `DELETE FROM chat_history WHERE license_key = $1 AND project_id = $2`

	// Idempotent: deleting a missing record affects zero rows, which is
	// not an error.
	_, err := r.db.Exec(ctx, query, licenseKey, projectID)
	if err != nil {
		r.logger.Error("Failed to delete chat history",
			zap.String("license_key", licenseKey),
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return fmt.Errorf("database error on delete chat history: %w", err)
	}

	return nil
}
