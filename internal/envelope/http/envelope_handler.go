// Package http provides HTTP handlers for per-user envelope encryption.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	"github.com/nemory/userkeys/internal/envelope/http/dto"
	envelopeUseCase "github.com/nemory/userkeys/internal/envelope/usecase"
	apperrors "github.com/nemory/userkeys/internal/errors"
	"github.com/nemory/userkeys/internal/httputil"
	customValidation "github.com/nemory/userkeys/internal/validation"
)

// EnvelopeHandler handles HTTP requests for envelope encryption and decryption.
type EnvelopeHandler struct {
	envelopeUseCase envelopeUseCase.EnvelopeUseCase
	logger          *slog.Logger
}

// NewEnvelopeHandler creates a new envelope handler.
func NewEnvelopeHandler(envelopeUseCase envelopeUseCase.EnvelopeUseCase, logger *slog.Logger) *EnvelopeHandler {
	return &EnvelopeHandler{
		envelopeUseCase: envelopeUseCase,
		logger:          logger,
	}
}

// EncryptHandler seals plaintext for a user.
// POST /v1/users/:user_id/envelopes/encrypt
// Returns 200 OK with the envelope to store in place of the plaintext.
func (h *EnvelopeHandler) EncryptHandler(c *gin.Context) {
	userID, err := httputil.ParseUserID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := req.DecodePlaintext()
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 plaintext: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	envelope, err := h.envelopeUseCase.EncryptForUser(c.Request.Context(), userID, req.Purpose, plaintext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EncryptResponse{Envelope: envelope})
}

// DecryptHandler opens an envelope for its owner.
// POST /v1/users/:user_id/envelopes/decrypt
// Any authentication failure is reported as 422 content_unavailable without detail.
// SECURITY: Plaintext is zeroed after the response is written.
func (h *EnvelopeHandler) DecryptHandler(c *gin.Context) {
	userID, err := httputil.ParseUserID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := h.envelopeUseCase.DecryptForUser(c.Request.Context(), userID, req.Envelope)
	if err != nil {
		h.handleDecryptError(c, err, slog.Int64("user_id", userID))
		return
	}
	defer cryptoDomain.Zero(plaintext)

	c.JSON(http.StatusOK, dto.MapDecryptResponse(plaintext, req.Envelope))
}

// SharedEncryptHandler seals application-owned text under a fresh app-scoped key.
// POST /v1/crypto/encrypt
// Returns 200 OK with the envelope itself as the body.
func (h *EnvelopeHandler) SharedEncryptHandler(c *gin.Context) {
	var req dto.SharedEncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	envelope, err := h.envelopeUseCase.EncryptShared(c.Request.Context(), []byte(req.Text))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, envelope)
}

// SharedDecryptHandler opens an app-scoped envelope.
// POST /v1/crypto/decrypt
// Envelopes bound to a user are reported as 422 content_unavailable.
func (h *EnvelopeHandler) SharedDecryptHandler(c *gin.Context) {
	var req dto.SharedDecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := h.envelopeUseCase.DecryptShared(c.Request.Context(), req.Blob)
	if err != nil {
		h.handleDecryptError(c, err, slog.String("scope", "app"))
		return
	}
	defer cryptoDomain.Zero(plaintext)

	if !utf8.Valid(plaintext) {
		httputil.HandleErrorGin(c, envelopeUseCase.ErrInvalidUTF8, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.SharedDecryptResponse{Text: string(plaintext)})
}

func (h *EnvelopeHandler) handleDecryptError(c *gin.Context, err error, owner slog.Attr) {
	if !apperrors.Is(err, cryptoDomain.ErrDecryptionFailed) {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Warn("envelope decryption failed", owner)
	c.JSON(http.StatusUnprocessableEntity, httputil.ErrorResponse{
		Error:   "content_unavailable",
		Message: "The content could not be decrypted",
	})
}
