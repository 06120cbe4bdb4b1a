package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"github.com/luvproxy/chat-proxy-api/internal/domain/usagelog"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/util"
	"go.uber.org/zap"
)

type LicenseService struct {
	repo   license.Repository
	tokens *TokenService
	usage  *UsageService
	logger *zap.Logger
}

func NewLicenseService(repo license.Repository, tokens *TokenService, usage *UsageService, logger *zap.Logger) *LicenseService {
	return &LicenseService{
		repo:   repo,
		tokens: tokens,
		usage:  usage,
		logger: logger.Named("LicenseService"),
	}
}

// AuthMetadata is attached to the auth audit entry.
type AuthMetadata struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type AuthResult struct {
	Token   string
	License *license.License
}

// Authenticate validates a license key and issues a session token.
// Expired licenses detected here are lazily deactivated: there is no
// background requirement for correctness, expiration is enforced at the
// moment of use.
func (s *LicenseService) Authenticate(ctx context.Context, licenseKey string, meta AuthMetadata) (*AuthResult, error) {
	if !util.IsValidLicenseKey(licenseKey) {
		return nil, fmt.Errorf("%w: invalid license key format", ierr.ErrValidation)
	}

	lic, err := s.repo.FindByKey(ctx, licenseKey)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			s.logger.Info("Authentication attempt with unknown license key", zap.String("license_key", licenseKey))
			return nil, ierr.ErrLicenseNotFound
		}
		s.logger.Error("Failed to look up license", zap.String("license_key", licenseKey), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	now := time.Now()
	if err := s.checkDecision(ctx, lic, license.Validate(lic, now), true); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(lic)
	if err != nil {
		return nil, err
	}

	s.usage.LogEvent(ctx, lic.LicenseKey, "", usagelog.ActionAuth, meta)

	s.logger.Info("License authenticated",
		zap.String("license_key", lic.LicenseKey),
		zap.String("plan_type", string(lic.PlanType)),
	)
	return &AuthResult{Token: token, License: lic}, nil
}

// Resolve re-loads a license by key and re-runs validation for a
// privileged call. No lazy deactivation here; that belongs to the
// authentication path.
func (s *LicenseService) Resolve(ctx context.Context, licenseKey string) (*license.License, error) {
	lic, err := s.repo.FindByKey(ctx, licenseKey)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, ierr.ErrLicenseNotFound
		}
		s.logger.Error("Failed to look up license", zap.String("license_key", licenseKey), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	if err := s.checkDecision(ctx, lic, license.Validate(lic, time.Now()), false); err != nil {
		return nil, err
	}
	return lic, nil
}

// checkDecision maps a validation decision onto the error taxonomy.
// When deactivateOnExpiry is set an expired license is persisted as
// inactive before the error is returned.
func (s *LicenseService) checkDecision(ctx context.Context, lic *license.License, decision license.Decision, deactivateOnExpiry bool) error {
	switch decision {
	case license.DecisionValid:
		return nil
	case license.DecisionInactive:
		return ierr.ErrLicenseInactive
	case license.DecisionExpired:
		if deactivateOnExpiry {
			if err := s.repo.Deactivate(ctx, lic.LicenseKey); err != nil {
				// The caller is still refused; the flag flip is retried
				// on the next read.
				s.logger.Error("Failed to deactivate expired license",
					zap.String("license_key", lic.LicenseKey),
					zap.Error(err),
				)
			} else {
				s.logger.Info("Expired license deactivated", zap.String("license_key", lic.LicenseKey))
			}
		}
		return ierr.ErrLicenseExpired
	case license.DecisionQuotaExceeded:
		return fmt.Errorf("%w: daily limit of %d requests reached", ierr.ErrQuotaExceeded, lic.MaxRequestsPerDay)
	default:
		return fmt.Errorf("%w: unknown validation decision %d", ierr.ErrInternalServer, decision)
	}
}
