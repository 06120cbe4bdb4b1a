package memstorage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luvproxy/chat-proxy-api/internal/domain/history"
)

type HistoryRepository struct {
	mu      sync.RWMutex
	records map[string]*history.Record
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{
		records: make(map[string]*history.Record),
	}
}

var _ history.Repository = (*HistoryRepository)(nil)

func historyKey(licenseKey, projectID string) string {
	return licenseKey + "\x00" + projectID
}

func (r *HistoryRepository) Upsert(ctx context.Context, licenseKey, projectID string, messages json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := historyKey(licenseKey, projectID)
	rec, ok := r.records[key]
	if !ok {
		rec = &history.Record{
			ID:         uuid.New(),
			LicenseKey: licenseKey,
			ProjectID:  projectID,
		}
		r.records[key] = rec
	}
	rec.Messages = append(json.RawMessage(nil), messages...)
	rec.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *HistoryRepository) Find(ctx context.Context, licenseKey, projectID string) (*history.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[historyKey(licenseKey, projectID)]
	if !ok {
		return nil, history.ErrNotFound
	}

	recCopy := *rec
	recCopy.Messages = append(json.RawMessage(nil), rec.Messages...)
	return &recCopy, nil
}

func (r *HistoryRepository) Delete(ctx context.Context, licenseKey, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, historyKey(licenseKey, projectID))
	return nil
}
