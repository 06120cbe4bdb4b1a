package license

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type PlanType string

const (
	PlanTrial      PlanType = "trial"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

// License gates access to the proxy. Trial plans are metered by
// MaxRequestsPerDay; other plans ignore the quota fields entirely.
// UpdatedAt doubles as the anchor for the daily counter rollover and is
// only moved by the usage accountant.
type License struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	LicenseKey        string         `db:"license_key" json:"license_key"`
	OwnerName         sql.NullString `db:"owner_name" json:"owner_name,omitempty"`
	PlanType          PlanType       `db:"plan_type" json:"plan_type"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	ExpiresAt         sql.NullTime   `db:"expires_at" json:"expires_at,omitempty"`
	MaxRequestsPerDay int            `db:"max_requests_day" json:"max_requests_day"`
	RequestsToday     int            `db:"requests_today" json:"requests_today"`
	RequestsTotal     int64          `db:"requests_total" json:"requests_total"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
