// Package handler exposes the conversation service over HTTP with gin.
package handler

import "flatshare/backend/internal/conversation"

// Handler holds the services the HTTP routes call into.
type Handler struct {
	Conversations *conversation.Service
}

func NewHandler(conversations *conversation.Service) *Handler {
	return &Handler{Conversations: conversations}
}
