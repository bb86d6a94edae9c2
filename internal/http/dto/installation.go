package dto

import (
	"time"

	"github.com/itsnaseer/slackbrix/internal/model"
)

type ListInstallationsQuery struct {
	Limit  int32 `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int32 `form:"offset" binding:"omitempty,min=0"`
}

type DeleteInstallationQuery struct {
	EnterpriseID string `form:"enterprise_id" binding:"required_without=TeamID"`
	TeamID       string `form:"team_id" binding:"required_without=EnterpriseID"`
}

func (q DeleteInstallationQuery) ToQuery() model.InstallationQuery {
	return model.InstallationQuery{EnterpriseID: q.EnterpriseID, TeamID: q.TeamID}
}

// InstallationResponse never carries the bot token.
type InstallationResponse struct {
	ID                  string    `json:"id"`
	EnterpriseID        *string   `json:"enterprise_id,omitempty"`
	TeamID              *string   `json:"team_id,omitempty"`
	IsEnterpriseInstall bool      `json:"is_enterprise_install"`
	AppID               *string   `json:"app_id,omitempty"`
	BotID               *string   `json:"bot_id,omitempty"`
	BotUserID           *string   `json:"bot_user_id,omitempty"`
	InstallerUser       *string   `json:"installer_user,omitempty"`
	TokenType           string    `json:"token_type"`
	Scopes              []string  `json:"scopes"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func ToInstallationResponse(r *model.InstallationRecord) InstallationResponse {
	scopes := r.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return InstallationResponse{
		ID:                  r.ID,
		EnterpriseID:        r.EnterpriseID,
		TeamID:              r.TeamID,
		IsEnterpriseInstall: r.IsEnterpriseInstall(),
		AppID:               r.AppID,
		BotID:               r.BotID,
		BotUserID:           r.BotUserID,
		InstallerUser:       r.InstallerUser,
		TokenType:           r.TokenType,
		Scopes:              scopes,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type ListInstallationsResponse struct {
	Installations []InstallationResponse `json:"installations"`
	Limit         int32                  `json:"limit"`
	Offset        int32                  `json:"offset"`
}
