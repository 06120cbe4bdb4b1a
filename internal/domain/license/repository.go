package license

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("license not found")
	ErrUpdateFailed = errors.New("license update failed")
)

type Repository interface {
	Create(ctx context.Context, lic *License) (uuid.UUID, error)
	FindByKey(ctx context.Context, key string) (*License, error)

	// Deactivate flips is_active off. Used for lazy expiration on the
	// authentication path and by the background expiry sweep.
	Deactivate(ctx context.Context, key string) error

	// IncrementUsage applies the daily-rollover counter update as a
	// single atomic operation against the store: requests_today is
	// incremented when updated_at falls on the same UTC calendar date as
	// now, otherwise reset to 1; requests_total always increments.
	// Returns the counters after the update.
	IncrementUsage(ctx context.Context, key string, now time.Time) (requestsToday int, requestsTotal int64, err error)

	// ListExpired returns active licenses whose expires_at has passed.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*License, error)
}
