package history

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("chat history not found")

type Repository interface {
	// Upsert creates the record for the pair or overwrites its messages.
	Upsert(ctx context.Context, licenseKey, projectID string, messages json.RawMessage) error

	// Find returns ErrNotFound when no record exists for the pair.
	Find(ctx context.Context, licenseKey, projectID string) (*Record, error)

	// Delete is idempotent; deleting a missing record is not an error.
	Delete(ctx context.Context, licenseKey, projectID string) error
}
