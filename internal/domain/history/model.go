package history

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record holds the full transcript for one (license_key, project_id)
// pair. Messages is an opaque JSON array owned by the client; saves
// replace it wholesale.
type Record struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	LicenseKey string          `db:"license_key" json:"license_key"`
	ProjectID  string          `db:"project_id" json:"project_id"`
	Messages   json.RawMessage `db:"messages" json:"messages"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
