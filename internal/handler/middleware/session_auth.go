package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/service"
	"go.uber.org/zap"
)

const (
	authorizationHeader     = "Authorization"
	bearerPrefix            = "Bearer "
	sessionClaimsContextKey = "sessionClaims"
)

// SessionAuthMiddleware verifies the bearer session token and stores
// its claims in the request context. The license itself is re-validated
// downstream; a valid token alone grants nothing but identity.
func SessionAuthMiddleware(tokens *service.TokenService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("SessionAuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeader)
		if authHeader == "" {
			log.Debug("Authorization header is missing")
			_ = c.Error(fmt.Errorf("%w: authentication token required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug("Authorization header format is invalid")
			_ = c.Error(fmt.Errorf("%w: invalid authorization header format", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenString == "" {
			log.Debug("Token is missing after Bearer prefix")
			_ = c.Error(fmt.Errorf("%w: token missing", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			log.Warn("Session token verification failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(sessionClaimsContextKey, claims)
		c.Next()
	}
}

func GetSessionClaims(c *gin.Context) *service.SessionClaims {
	value, exists := c.Get(sessionClaimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*service.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
