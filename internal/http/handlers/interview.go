package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/krishkalaria12/echo-interview/internal/http/response"
	apperrors "github.com/krishkalaria12/echo-interview/internal/pkg/errors"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
	"github.com/krishkalaria12/echo-interview/internal/services"
)

type InterviewHandler struct {
	log      *logger.Logger
	webhooks services.WebhookService
}

func NewInterviewHandler(log *logger.Logger, webhooks services.WebhookService) *InterviewHandler {
	return &InterviewHandler{
		log:      log.With("handler", "InterviewHandler"),
		webhooks: webhooks,
	}
}

// Enrich kicks off candidate profile enrichment for an upcoming interview.
// The work runs asynchronously; this only starts the workflow.
func (h *InterviewHandler) Enrich(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id",
			errors.New("invalid interview id"))
		return
	}

	if err := h.webhooks.EmitEnrichment(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			response.RespondError(c, http.StatusNotFound, "not_found", err)
		default:
			h.log.Error("enrichment emit failed", "interview_id", id, "error", err)
			response.RespondError(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	response.RespondOK(c, gin.H{"status": "ok"})
}
