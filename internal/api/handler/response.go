package handler

import (
	"errors"
	"net/http"

	"flatshare/backend/internal/conversation"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func respondBadRequest(c *gin.Context, message string, err error) {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	message := "Unexpected error"
	var ce *conversation.Error
	if errors.As(err, &ce) {
		message = ce.Message
	}

	switch {
	case errors.Is(err, conversation.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
	case errors.Is(err, conversation.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Message: message})
	default:
		detail := err.Error()
		if ce != nil && ce.Err != nil {
			detail = ce.Err.Error()
		}
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("user_id", currentUserID(c)).
			Msg(message)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Message: message, Error: detail})
	}
}
