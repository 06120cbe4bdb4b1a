package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luvproxy/chat-proxy-api/internal/handler/dto"
	"github.com/luvproxy/chat-proxy-api/internal/handler/middleware"
	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/service"
	"go.uber.org/zap"
)

type SyncHandler struct {
	service *service.SyncService
	logger  *zap.Logger
}

func NewSyncHandler(service *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger.Named("SyncHandler"),
	}
}

func (h *SyncHandler) Sync(c *gin.Context) {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind sync request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: action and project_id are required, action must be save, load or clear", ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()

	switch req.Action {
	case dto.SyncActionSave:
		saved, err := h.service.Save(ctx, claims.LicenseKey, req.ProjectID, req.Messages)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, dto.OK(dto.SyncSaveData{Saved: saved}))

	case dto.SyncActionLoad:
		messages, count, updatedAt, err := h.service.Load(ctx, claims.LicenseKey, req.ProjectID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, dto.OK(dto.SyncLoadData{
			Messages:  messages,
			Count:     count,
			UpdatedAt: updatedAt,
		}))

	case dto.SyncActionClear:
		if err := h.service.Clear(ctx, claims.LicenseKey, req.ProjectID); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, dto.OK(gin.H{}))

	default:
		// Unreachable through binding, kept so no fourth case slips by.
		_ = c.Error(fmt.Errorf("%w: invalid action, use save, load or clear", ierr.ErrValidation))
	}
}
