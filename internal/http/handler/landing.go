package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type LandingHandler struct {
	installPath string
	trigger     string
}

func NewLandingHandler(installPath, trigger string) *LandingHandler {
	return &LandingHandler{installPath: installPath, trigger: trigger}
}

func (h *LandingHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, landingTemplate, gin.H{
		"InstallPath": h.installPath,
		"Trigger":     h.trigger,
	})
}
