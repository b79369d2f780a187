package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
	"github.com/0xblckmrq/signatory-role/service"
)

// VerificationHandlers contains HTTP handlers for the verification endpoints
type VerificationHandlers struct {
	service *service.VerificationService
	links   ports.LinkTokenizer
	logger  *slog.Logger
}

// NewVerificationHandlers creates new verification handlers
func NewVerificationHandlers(svc *service.VerificationService, links ports.LinkTokenizer, logger *slog.Logger) *VerificationHandlers {
	return &VerificationHandlers{
		service: svc,
		links:   links,
		logger:  logger,
	}
}

// SubmitSignature handles the signer-page callback. The requester is
// identified either by the signed link token embedded in the signer URL or
// by an explicit requesterId.
func (h *VerificationHandlers) SubmitSignature(c *gin.Context) {
	var req struct {
		RequesterID string `json:"requesterId"`
		Token       string `json:"token"`
		Signature   string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	requesterID := req.RequesterID
	if req.Token != "" && h.links != nil {
		resolved, err := h.links.RequesterID(req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired link token"})
			return
		}
		requesterID = resolved
	}
	if requesterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requester identity required"})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), requesterID, req.Signature)
	if err != nil {
		status, msg := submitErrorResponse(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("signature submission failed", "requester", requesterID, "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": result.Wallet})
}

// Health reports liveness
func (h *VerificationHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// submitErrorResponse maps workflow errors to status codes and the generic,
// detail-free messages the requester is allowed to see.
func submitErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNoActiveChallenge):
		return http.StatusNotFound, "no active challenge; start verification first"
	case errors.Is(err, core.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid signature"
	case errors.Is(err, core.ErrWalletMismatch):
		return http.StatusUnauthorized, "signature does not match the expected wallet"
	case errors.Is(err, core.ErrTokenNotHeld):
		return http.StatusForbidden, "wallet does not hold the required token"
	case errors.Is(err, core.ErrRoleNotConfigured):
		return http.StatusInternalServerError, "verification failed"
	default:
		return http.StatusInternalServerError, "verification failed"
	}
}
