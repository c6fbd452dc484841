package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the conversation endpoints on r behind RequireUser.
func RegisterRoutes(r gin.IRouter, h *Handler, jwtSecret []byte) {
	conversations := r.Group("/conversations", RequireUser(jwtSecret))
	conversations.POST("", h.StartConversation)
	conversations.GET("", h.GetConversations)
	conversations.GET("/:id/messages", h.GetMessages)
	conversations.POST("/:id/messages", h.SendMessage)
	conversations.POST("/:id/read", h.MarkRead)
}
