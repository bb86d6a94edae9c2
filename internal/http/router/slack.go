package router

import (
	"github.com/gin-gonic/gin"

	"github.com/itsnaseer/slackbrix/internal/http/handler/webhook"
)

func SlackRouter(router *gin.RouterGroup, h *webhook.SlackWebhookHandler) {
	router.POST("/events", h.HandleEvent)
}
