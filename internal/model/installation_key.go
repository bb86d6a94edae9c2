package model

import "fmt"

const (
	enterpriseKeyPrefix = "E:"
	teamKeyPrefix       = "T:"
)

// InstallationKey derives the storage key for an installation.
//
// The explicit enterprise flag decides the key space. A workspace-level install
// inside an Enterprise Grid org still carries an enterprise ID, but it is stored
// under its team key.
func InstallationKey(isEnterpriseInstall bool, enterpriseID, teamID string) (string, error) {
	if isEnterpriseInstall {
		if enterpriseID == "" {
			return "", fmt.Errorf("enterprise install without enterprise id: %w", ErrMissingIdentifier)
		}
		return EnterpriseKey(enterpriseID), nil
	}
	if teamID == "" {
		return "", fmt.Errorf("workspace install without team id: %w", ErrMissingIdentifier)
	}
	return TeamKey(teamID), nil
}

func EnterpriseKey(enterpriseID string) string {
	return enterpriseKeyPrefix + enterpriseID
}

func TeamKey(teamID string) string {
	return teamKeyPrefix + teamID
}
