package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luvproxy/chat-proxy-api/internal/domain/usagelog"
)

type UsageLogRepository struct {
	mu      sync.RWMutex
	entries []*usagelog.Entry

	// AppendErr, when set, makes Append fail. Tests use it to prove that
	// audit logging is best-effort and never aborts the main operation.
	AppendErr error
}

func NewUsageLogRepository() *UsageLogRepository {
	return &UsageLogRepository{}
}

var _ usagelog.Repository = (*UsageLogRepository)(nil)

func (r *UsageLogRepository) Append(ctx context.Context, entry *usagelog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.AppendErr != nil {
		return r.AppendErr
	}

	stored := *entry
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, &stored)

	return nil
}

func (r *UsageLogRepository) Entries() []*usagelog.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*usagelog.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
