// Package memstorage holds in-memory repository implementations used as
// test doubles for the postgres-backed ones.
package memstorage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
)

type LicenseRepository struct {
	mu       sync.RWMutex
	licenses map[string]*license.License
}

func NewLicenseRepository() *LicenseRepository {
	return &LicenseRepository{
		licenses: make(map[string]*license.License),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.licenses[lic.LicenseKey]; exists {
		return uuid.Nil, fmt.Errorf("license key '%s' already exists", lic.LicenseKey)
	}

	stored := *lic
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	r.licenses[stored.LicenseKey] = &stored

	return stored.ID, nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lic, ok := r.licenses[key]
	if !ok {
		return nil, license.ErrNotFound
	}

	licCopy := *lic
	return &licCopy, nil
}

func (r *LicenseRepository) Deactivate(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lic, ok := r.licenses[key]
	if !ok {
		return license.ErrNotFound
	}
	lic.IsActive = false
	return nil
}

// IncrementUsage mirrors the atomic SQL update: the whole read-modify-
// write happens under the lock, so concurrent callers never lose an
// increment.
func (r *LicenseRepository) IncrementUsage(ctx context.Context, key string, now time.Time) (int, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lic, ok := r.licenses[key]
	if !ok {
		return 0, 0, license.ErrNotFound
	}

	if sameUTCDate(lic.UpdatedAt, now) {
		lic.RequestsToday++
	} else {
		lic.RequestsToday = 1
	}
	lic.RequestsTotal++
	lic.UpdatedAt = now.UTC()

	return lic.RequestsToday, lic.RequestsTotal, nil
}

func (r *LicenseRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*license.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expired := make([]*license.License, 0)
	for _, lic := range r.licenses {
		if len(expired) >= limit {
			break
		}
		if lic.IsActive && lic.ExpiresAt.Valid && lic.ExpiresAt.Time.Before(now) {
			licCopy := *lic
			expired = append(expired, &licCopy)
		}
	}
	return expired, nil
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
