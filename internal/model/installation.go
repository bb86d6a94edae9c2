package model

import (
	"errors"
	"strings"
	"time"
)

const DefaultTokenType = "bot"

var (
	ErrMissingIdentifier = errors.New("missing installation identifier")
	ErrMissingToken      = errors.New("installation missing bot token")
)

// InstallationRecord is the persisted credential for one workspace or enterprise.
type InstallationRecord struct {
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	EnterpriseID  *string   `json:"enterprise_id,omitempty"`
	TeamID        *string   `json:"team_id,omitempty"`
	BotID         *string   `json:"bot_id,omitempty"`
	BotUserID     *string   `json:"bot_user_id,omitempty"`
	InstallerUser *string   `json:"installer_user,omitempty"`
	AppID         *string   `json:"app_id,omitempty"`
	ID            string    `json:"id"`
	BotToken      string    `json:"-"` // never expose tokens in API
	TokenType     string    `json:"token_type"`
	Scopes        []string  `json:"scopes,omitempty"`
}

// IsEnterpriseInstall reports whether the record lives in the enterprise key space.
func (r *InstallationRecord) IsEnterpriseInstall() bool {
	return strings.HasPrefix(r.ID, enterpriseKeyPrefix)
}

// InstallationQuery identifies the installation a request or lifecycle event refers to.
type InstallationQuery struct {
	EnterpriseID        string
	TeamID              string
	IsEnterpriseInstall bool
}

// IdentityClaims are extracted from an inbound event by the dispatch layer.
type IdentityClaims = InstallationQuery

// Authorization is what the dispatch layer needs to build a client for one event.
type Authorization struct {
	BotToken     string
	BotID        string
	BotUserID    string
	EnterpriseID string
	TeamID       string
}

// JoinScopes and SplitScopes convert between the scope list and its single-column form.
func JoinScopes(scopes []string) *string {
	if len(scopes) == 0 {
		return nil
	}
	joined := strings.Join(scopes, ",")
	return &joined
}

func SplitScopes(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	parts := strings.Split(*raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
