package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itsnaseer/slackbrix/internal/http/dto"
	"github.com/itsnaseer/slackbrix/internal/service"
)

const defaultListLimit = 50

type InstallationHandler struct {
	installations service.InstallationService
}

func NewInstallationHandler(installations service.InstallationService) *InstallationHandler {
	return &InstallationHandler{installations: installations}
}

func (h *InstallationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.ListInstallationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}

	records, err := h.installations.ListInstallations(ctx, q.Limit, q.Offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list installations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list installations"})
		return
	}

	resp := dto.ListInstallationsResponse{
		Installations: make([]dto.InstallationResponse, 0, len(records)),
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	for i := range records {
		resp.Installations = append(resp.Installations, dto.ToInstallationResponse(&records[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes an installation by enterprise or team id. Deleting an
// installation that does not exist succeeds.
func (h *InstallationHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.DeleteInstallationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enterprise_id or team_id is required"})
		return
	}

	if err := h.installations.DeleteInstallation(ctx, q.ToQuery()); err != nil {
		slog.ErrorContext(ctx, "failed to delete installation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete installation"})
		return
	}

	slog.InfoContext(ctx, "installation deleted by admin",
		"enterprise_id", q.EnterpriseID, "team_id", q.TeamID)
	c.Status(http.StatusNoContent)
}
