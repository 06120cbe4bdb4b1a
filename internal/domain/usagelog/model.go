package usagelog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionAuth         Action = "auth"
	ActionProxySuccess Action = "proxy_success"
	ActionProxyError   Action = "proxy_error"
)

// Entry is an append-only audit record. The service never reads these
// back; they exist for observability.
type Entry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	LicenseKey string          `db:"license_key" json:"license_key"`
	ProjectID  string          `db:"project_id" json:"project_id,omitempty"`
	Action     Action          `db:"action" json:"action"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
