package dto

import (
	"time"

	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
)

type AuthRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
}

type AuthData struct {
	Token   string      `json:"token"`
	License LicenseInfo `json:"license"`
}

type LicenseInfo struct {
	Name           string     `json:"name"`
	PlanType       string     `json:"plan_type"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at"`
	RequestsToday  int        `json:"requests_today"`
	RequestsTotal  int64      `json:"requests_total"`
	MaxRequestsDay int        `json:"max_requests_day"`
}

func NewLicenseInfo(lic *license.License) LicenseInfo {
	info := LicenseInfo{
		PlanType:       string(lic.PlanType),
		IsActive:       lic.IsActive,
		RequestsToday:  lic.RequestsToday,
		RequestsTotal:  lic.RequestsTotal,
		MaxRequestsDay: lic.MaxRequestsPerDay,
	}
	if lic.OwnerName.Valid {
		info.Name = lic.OwnerName.String
	}
	if lic.ExpiresAt.Valid {
		info.ExpiresAt = &lic.ExpiresAt.Time
	}
	return info
}
