package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"flatshare/backend/internal/config"
	"flatshare/backend/internal/conversation"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	Body string `json:"body"`
}

// messagesQuery is the query string of GET /conversations/:id/messages.
type messagesQuery struct {
	Before string `form:"before"`
	Limit  string `form:"limit"`
}

type sendMessageResponse struct {
	Message      *conversation.MessageView `json:"message"`
	Conversation *conversation.View        `json:"conversation"`
}

// StartConversation handles POST /conversations.
func (h *Handler) StartConversation(c *gin.Context) {
	var req conversation.StartRequest
	// An empty body is reported by the service as a missing context.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "Invalid request body.", err)
		return
	}

	view, err := h.Conversations.StartConversation(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view, "")
}

// GetConversations handles GET /conversations.
func (h *Handler) GetConversations(c *gin.Context) {
	views, err := h.Conversations.GetConversations(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, views, "")
}

// GetMessages handles GET /conversations/:id/messages?before=<RFC 3339>&limit=<n>.
// limit defaults to config.DefaultMessageLimit; values above config.MaxMessageLimit are clamped to it.
func (h *Handler) GetMessages(c *gin.Context) {
	var q messagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "Invalid query.", err)
		return
	}

	query := conversation.MessageQuery{Limit: config.DefaultMessageLimit}
	if q.Before != "" {
		before, err := time.Parse(time.RFC3339Nano, q.Before)
		if err != nil {
			respondBadRequest(c, "before must be an RFC 3339 timestamp.", err)
			return
		}
		query.Before = &before
	}
	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit <= 0 {
			respondBadRequest(c, "limit must be a positive number.", err)
			return
		}
		query.Limit = limit
	}

	msgs, err := h.Conversations.GetMessages(c.Request.Context(), c.Param("id"), currentUserID(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, msgs, "")
}

// SendMessage handles POST /conversations/:id/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "Invalid request body.", err)
		return
	}

	msg, conv, err := h.Conversations.SendMessage(c.Request.Context(), c.Param("id"), currentUserID(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, sendMessageResponse{Message: msg, Conversation: conv}, "Message sent.")
}

// MarkRead handles POST /conversations/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.Conversations.MarkRead(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Conversation marked as read.")
}
