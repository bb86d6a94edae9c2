package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Installation is the validated payload produced by a completed OAuth install.
type Installation struct {
	EnterpriseID        string          `json:"enterprise_id,omitempty"`
	TeamID              string          `json:"team_id,omitempty"`
	AppID               string          `json:"app_id,omitempty"`
	TokenType           string          `json:"token_type,omitempty" validate:"omitempty,oneof=bot user"`
	InstallerUserID     string          `json:"installer_user_id,omitempty"`
	Bot                 InstallationBot `json:"bot"`
	IsEnterpriseInstall bool            `json:"is_enterprise_install"`
}

type InstallationBot struct {
	Token  string   `json:"-"`
	ID     string   `json:"id,omitempty"`
	UserID string   `json:"user_id,omitempty"`
	Scopes []string `json:"scopes,omitempty" validate:"dive,required"`
}

// Key derives the storage key from the installation's own identity fields.
func (i *Installation) Key() (string, error) {
	return InstallationKey(i.IsEnterpriseInstall, i.EnterpriseID, i.TeamID)
}

// Validate rejects payloads missing required fields. A missing bot token is
// reported as ErrMissingToken and a missing identifier as ErrMissingIdentifier.
func (i *Installation) Validate() error {
	if i.Bot.Token == "" {
		return ErrMissingToken
	}
	if _, err := i.Key(); err != nil {
		return err
	}
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("invalid installation: %w", err)
	}
	return nil
}

// Record maps a validated installation to its persisted form.
func (i *Installation) Record() (*InstallationRecord, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	key, err := i.Key()
	if err != nil {
		return nil, err
	}

	tokenType := i.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}

	return &InstallationRecord{
		ID:            key,
		EnterpriseID:  optional(i.EnterpriseID),
		TeamID:        optional(i.TeamID),
		BotToken:      i.Bot.Token,
		BotID:         optional(i.Bot.ID),
		BotUserID:     optional(i.Bot.UserID),
		InstallerUser: optional(i.InstallerUserID),
		Scopes:        i.Bot.Scopes,
		AppID:         optional(i.AppID),
		TokenType:     tokenType,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
