package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/luvproxy/chat-proxy-api/internal/config"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"go.uber.org/zap"
)

// SessionClaims is the payload of a session token. The token asserts
// the license was valid at issuance time only; every privileged call
// must re-validate the underlying license.
type SessionClaims struct {
	LicenseKey string `json:"license_key"`
	PlanType   string `json:"plan_type"`
	LicenseID  string `json:"id"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

func NewTokenService(cfg *config.JWTConfig, logger *zap.Logger) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		logger: logger.Named("TokenService"),
	}, nil
}

func (s *TokenService) Issue(lic *license.License) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		LicenseKey: lic.LicenseKey,
		PlanType:   string(lic.PlanType),
		LicenseID:  lic.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign session token", zap.String("license_key", lic.LicenseKey), zap.Error(err))
		return "", fmt.Errorf("%w: failed to sign session token: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Debug("Session token issued", zap.String("license_key", lic.LicenseKey))
	return signed, nil
}

// Verify parses and validates a session token. It fails closed: any
// malformed, mis-signed, or expired token is rejected as unauthorized.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.Warn("Session token validation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ierr.ErrInvalidToken
	}
	if claims.LicenseKey == "" {
		return nil, fmt.Errorf("%w: missing license key claim", ierr.ErrTokenNoClaims)
	}

	return claims, nil
}
