package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	ErrLicenseNotFound = errors.New("license not found")
	ErrLicenseInactive = errors.New("license inactive")
	ErrLicenseExpired  = errors.New("license expired")
	ErrQuotaExceeded   = errors.New("daily request limit reached")

	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenParsingFailed = errors.New("failed to parse token")
	ErrTokenNoClaims      = errors.New("token contains no claims")
)
