package router

import (
	"github.com/gin-gonic/gin"

	"github.com/itsnaseer/slackbrix/internal/http/handler"
)

func OAuthRouter(router gin.IRoutes, h *handler.OAuthHandler, installPath, redirectPath string) {
	router.GET(installPath, h.Install)
	router.GET(redirectPath, h.Callback)
}
