package license

import "time"

type Decision int

const (
	DecisionValid Decision = iota
	DecisionInactive
	DecisionExpired
	DecisionQuotaExceeded
)

func (d Decision) String() string {
	switch d {
	case DecisionValid:
		return "valid"
	case DecisionInactive:
		return "inactive"
	case DecisionExpired:
		return "expired"
	case DecisionQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// Validate decides whether a license may be used at the given moment.
// It is pure: callers own any follow-up persistence (e.g. flipping
// is_active off when an expired license is detected).
//
// Precedence: Inactive before Expired before QuotaExceeded. An expired
// license that is still flagged active must never be reported as merely
// quota-exceeded.
func Validate(lic *License, now time.Time) Decision {
	if !lic.IsActive {
		return DecisionInactive
	}
	if lic.ExpiresAt.Valid && lic.ExpiresAt.Time.Before(now) {
		return DecisionExpired
	}
	if lic.PlanType == PlanTrial && lic.RequestsToday >= lic.MaxRequestsPerDay {
		return DecisionQuotaExceeded
	}
	return DecisionValid
}
