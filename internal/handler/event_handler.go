package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/doclibre/ragline/internal/ingest"
	"github.com/doclibre/ragline/internal/pkg/errcode"
	"github.com/doclibre/ragline/internal/pkg/response"
)

const maxEventBody = 1 << 20

type EventHandler struct {
	ingest *ingest.Service
}

func NewEventHandler(svc *ingest.Service) *EventHandler {
	return &EventHandler{ingest: svc}
}

// HandleS3 accepts a raw object-store notification, optionally wrapped in a
// queue envelope, and runs the matching ingestion action.
func (h *EventHandler) HandleS3(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody))
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "unreadable body")
		return
	}
	report, err := h.ingest.HandleEvent(c.Request.Context(), payload)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}
