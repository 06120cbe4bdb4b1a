package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luvproxy/chat-proxy-api/internal/handler/dto"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	service *service.LicenseService
	logger  *zap.Logger
}

func NewAuthHandler(service *service.LicenseService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.Named("AuthHandler"),
	}
}

func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind authentication request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: license key not provided", ierr.ErrValidation))
		return
	}

	meta := service.AuthMetadata{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.service.Authenticate(c.Request.Context(), req.LicenseKey, meta)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.AuthData{
		Token:   result.Token,
		License: dto.NewLicenseInfo(result.License),
	}))
}
