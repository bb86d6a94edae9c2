package router

import (
	"github.com/gin-gonic/gin"

	"github.com/itsnaseer/slackbrix/internal/http/handler"
)

func InstallationRouter(router *gin.RouterGroup, h *handler.InstallationHandler) {
	router.GET("", h.List)
	router.DELETE("", h.Delete)
}
