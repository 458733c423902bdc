package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/pkg/errcode"
	"github.com/doclibre/ragline/internal/pkg/response"
	"github.com/doclibre/ragline/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Question string `json:"question"`
}

type retrieveRequest struct {
	Query string `json:"query"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		response.Error(c, errcode.ErrInvalid, "question is required")
		return
	}
	answer, err := h.chat.Ask(c.Request.Context(), question)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

func (h *ChatHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return
	}
	result, err := h.chat.Retrieve(c.Request.Context(), query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"context":    result.Context,
		"references": result.References,
	})
}
