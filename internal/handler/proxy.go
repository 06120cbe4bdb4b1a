package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luvproxy/chat-proxy-api/internal/handler/dto"
	"github.com/luvproxy/chat-proxy-api/internal/handler/middleware"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var proxyRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proxy_requests_total",
		Help: "Proxied chat requests by outcome.",
	},
	[]string{"outcome"},
)

type ProxyHandler struct {
	service *service.ProxyService
	logger  *zap.Logger
}

func NewProxyHandler(service *service.ProxyService, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: service,
		logger:  logger.Named("ProxyHandler"),
	}
}

func (h *ProxyHandler) Forward(c *gin.Context) {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	var req dto.ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind proxy request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: project_id, session_token and message are required", ierr.ErrValidation))
		return
	}

	result, err := h.service.Forward(c.Request.Context(), claims.LicenseKey, &service.ForwardRequest{
		ProjectID:    req.ProjectID,
		SessionToken: req.SessionToken,
		Message:      req.Message,
		Files:        req.Files,
		ChatOnly:     req.ChatOnly,
	})
	if err != nil {
		proxyRequestsTotal.WithLabelValues("error").Inc()
		_ = c.Error(err)
		return
	}

	proxyRequestsTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, dto.OK(dto.ProxyData{
		Response: result.Response,
		Raw:      result.Raw,
		Usage: dto.UsageInfo{
			RequestsToday: result.RequestsToday,
			RequestsTotal: result.RequestsTotal,
		},
	}))
}
