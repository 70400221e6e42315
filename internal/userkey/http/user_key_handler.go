// Package http provides HTTP handlers for per-user key metadata and rotation.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nemory/userkeys/internal/httputil"
	"github.com/nemory/userkeys/internal/userkey/http/dto"
	userkeyUseCase "github.com/nemory/userkeys/internal/userkey/usecase"
)

// UserKeyHandler handles HTTP requests for user key management.
type UserKeyHandler struct {
	userKeyUseCase userkeyUseCase.UserKeyUseCase
	logger         *slog.Logger
}

// NewUserKeyHandler creates a new user key handler.
func NewUserKeyHandler(userKeyUseCase userkeyUseCase.UserKeyUseCase, logger *slog.Logger) *UserKeyHandler {
	return &UserKeyHandler{
		userKeyUseCase: userKeyUseCase,
		logger:         logger,
	}
}

// GetHandler returns key metadata for a user.
// GET /v1/users/:user_id/key - 404 until the first encryption provisions the key.
func (h *UserKeyHandler) GetHandler(c *gin.Context) {
	userID, err := httputil.ParseUserID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	key, err := h.userKeyUseCase.GetUserKey(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserKeyToResponse(key))
}

// RotateHandler replaces the user's DEK with a new key version.
// POST /v1/users/:user_id/key/rotate
func (h *UserKeyHandler) RotateHandler(c *gin.Context) {
	userID, err := httputil.ParseUserID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	key, err := h.userKeyUseCase.RotateUserKey(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserKeyToResponse(key))
}
