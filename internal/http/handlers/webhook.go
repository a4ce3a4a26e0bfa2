package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krishkalaria12/echo-interview/internal/http/response"
	apperrors "github.com/krishkalaria12/echo-interview/internal/pkg/errors"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/services"
)

const (
	headerSignature = "x-signature"
	headerAPIKey    = "x-api-key"
)

// SignatureVerifier authenticates raw webhook bodies against the provider
// secret.
type SignatureVerifier interface {
	VerifySignature(body []byte, sig string) bool
}

type WebhookHandler struct {
	log      *logger.Logger
	verifier SignatureVerifier
	webhooks services.WebhookService
}

func NewWebhookHandler(log *logger.Logger, verifier SignatureVerifier, webhooks services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		log:      log.With("handler", "WebhookHandler"),
		verifier: verifier,
		webhooks: webhooks,
	}
}

// Receive authenticates and dispatches a provider webhook delivery. The
// signature is verified over the exact raw bytes received, before any JSON
// parsing.
func (h *WebhookHandler) Receive(c *gin.Context) {
	sig := c.GetHeader(headerSignature)
	apiKey := c.GetHeader(headerAPIKey)
	if sig == "" || apiKey == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_auth",
			errors.New("Missing signature or API key"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	if !h.verifier.VerifySignature(raw, sig) {
		response.RespondError(c, http.StatusUnauthorized, "invalid_signature",
			errors.New("Invalid signature"))
		return
	}

	var ev services.WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json",
			errors.New("Invalid JSON"))
		return
	}

	if err := h.webhooks.HandleEvent(c.Request.Context(), &ev); err != nil {
		h.respondDispatchError(c, ev.Type, err)
		return
	}

	response.RespondOK(c, gin.H{"status": "ok"})
}

func (h *WebhookHandler) respondDispatchError(c *gin.Context, eventType string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "invalid_event", err)
	case errors.Is(err, apperrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrUnauthorized):
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	default:
		h.log.Error("webhook dispatch failed", "type", eventType, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
