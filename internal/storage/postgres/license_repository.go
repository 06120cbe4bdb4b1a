package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"go.uber.org/zap"
)

type LicenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLicenseRepository(db *pgxpool.Pool, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	query := `
        INSERT INTO licenses (
            license_key, owner_name, plan_type, is_active, expires_at,
            max_requests_day, requests_today, requests_total
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        ) RETURNING id
    `
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		lic.LicenseKey,
		lic.OwnerName,
		lic.PlanType,
		lic.IsActive,
		lic.ExpiresAt,
		lic.MaxRequestsPerDay,
		lic.RequestsToday,
		lic.RequestsTotal,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create license with duplicate key",
				zap.String("license_key", lic.LicenseKey),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return uuid.Nil, fmt.Errorf("license key '%s' already exists", lic.LicenseKey)
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create license: %w", err)
	}

	r.logger.Info("License created successfully", zap.String("id", insertedID.String()))
	return insertedID, nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	query := `
        SELECT
            id, license_key, owner_name, plan_type, is_active, expires_at,
            max_requests_day, requests_today, requests_total, created_at, updated_at
        FROM licenses
        WHERE license_key = $1
    `

	row := r.db.QueryRow(ctx, query, key)
	return r.scanLicense(row)
}

func (r *LicenseRepository) Deactivate(ctx context.Context, key string) error {
	query := `UPDATE licenses SET is_active = FALSE WHERE license_key = $1`

	cmdTag, err := r.db.Exec(ctx, query, key)
	if err != nil {
		r.logger.Error("Failed to deactivate license", zap.String("license_key", key), zap.Error(err))
		return fmt.Errorf("database error on deactivate license: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to deactivate license, but no rows were affected", zap.String("license_key", key))
		return license.ErrNotFound
	}

	r.logger.Info("License deactivated", zap.String("license_key", key))
	return nil
}

// IncrementUsage performs the rollover-aware counter update in a single
// UPDATE so concurrent proxied calls cannot lose an increment. The
// rollover compares UTC calendar dates: same day increments
// requests_today, a new day resets it to 1. requests_total always
// increments.
func (r *LicenseRepository) IncrementUsage(ctx context.Context, key string, now time.Time) (int, int64, error) {
	query := `
        UPDATE licenses SET
            requests_today = CASE
                WHEN (updated_at AT TIME ZONE 'UTC')::date = ($2::timestamptz AT TIME ZONE 'UTC')::date
                THEN requests_today + 1
                ELSE 1
            END,
            requests_total = requests_total + 1,
            updated_at = $2
        WHERE license_key = $1
        RETURNING requests_today, requests_total
    `

	var requestsToday int
	var requestsTotal int64

	err := r.db.QueryRow(ctx, query, key, now.UTC()).Scan(&requestsToday, &requestsTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, license.ErrNotFound
		}
		r.logger.Error("Failed to increment license usage", zap.String("license_key", key), zap.Error(err))
		return 0, 0, fmt.Errorf("database error on increment usage: %w", err)
	}

	return requestsToday, requestsTotal, nil
}

func (r *LicenseRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*license.License, error) {
	query := `
        SELECT
            id, license_key, owner_name, plan_type, is_active, expires_at,
            max_requests_day, requests_today, requests_total, created_at, updated_at
        FROM licenses
        WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at < $1
        ORDER BY expires_at ASC
        LIMIT $2
    `

	rows, err := r.db.Query(ctx, query, now.UTC(), limit)
	if err != nil {
		r.logger.Error("Failed to query expired licenses", zap.Error(err))
		return nil, fmt.Errorf("database error on list expired licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0)

	for rows.Next() {
		var lic license.License
		err := rows.Scan(
			&lic.ID,
			&lic.LicenseKey,
			&lic.OwnerName,
			&lic.PlanType,
			&lic.IsActive,
			&lic.ExpiresAt,
			&lic.MaxRequestsPerDay,
			&lic.RequestsToday,
			&lic.RequestsTotal,
			&lic.CreatedAt,
			&lic.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan license row during expired list", zap.Error(err))
			return nil, fmt.Errorf("database scan error during expired list: %w", err)
		}
		licenses = append(licenses, &lic)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating expired license rows", zap.Error(err))
		return nil, fmt.Errorf("database iteration error on list expired licenses: %w", err)
	}

	return licenses, nil
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	err := row.Scan(
		&lic.ID,
		&lic.LicenseKey,
		&lic.OwnerName,
		&lic.PlanType,
		&lic.IsActive,
		&lic.ExpiresAt,
		&lic.MaxRequestsPerDay,
		&lic.RequestsToday,
		&lic.RequestsTotal,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &lic, nil
}
