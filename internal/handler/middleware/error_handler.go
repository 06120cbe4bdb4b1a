package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/luvproxy/chat-proxy-api/internal/handler/dto"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/upstream"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware funnels every handler error to the wire shape
// {success:false, error} with the status the taxonomy prescribes.
// Upstream failures pass through with their origin status and payload;
// anything unclassified becomes a generic 500 so no internal detail
// leaks.
func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))

		status := http.StatusInternalServerError
		errResponse := dto.APIErrorResponse{
			Success: false,
			Error:   "Internal server error",
		}

		var ve validator.ValidationErrors
		var upstreamErr *upstream.Error

		switch {
		case errors.As(err, &upstreamErr):
			status = upstreamErr.StatusCode
			errResponse.Error = upstreamErr.Error()
			errResponse.Details = upstreamErr.Payload
		case errors.As(err, &ve):
			status = http.StatusBadRequest
			errResponse.Error = buildValidationMessage(ve)
		case errors.Is(err, ierr.ErrValidation):
			status = http.StatusBadRequest
			errResponse.Error = err.Error()
		case errors.Is(err, ierr.ErrUnauthorized),
			errors.Is(err, ierr.ErrInvalidToken),
			errors.Is(err, ierr.ErrTokenParsingFailed),
			errors.Is(err, ierr.ErrTokenNoClaims):
			status = http.StatusUnauthorized
			errResponse.Error = "Invalid or expired token"
		case errors.Is(err, ierr.ErrLicenseInactive),
			errors.Is(err, ierr.ErrLicenseExpired),
			errors.Is(err, ierr.ErrQuotaExceeded):
			status = http.StatusForbidden
			errResponse.Error = err.Error()
		case errors.Is(err, ierr.ErrLicenseNotFound):
			status = http.StatusNotFound
			errResponse.Error = "License not found"
		}

		c.AbortWithStatusJSON(status, errResponse)
	}
}

func buildValidationMessage(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return "Input validation failed"
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
