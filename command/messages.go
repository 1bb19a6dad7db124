package command

import "strings"

const (
	TypeRefresh   = "admin_client.command.session.refresh"
	TypeLogout    = "admin_client.command.session.logout"
	TypeSetTokens = "admin_client.command.session.set_tokens"

	DefaultLogoutReason = "logout requested"
)

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

type LogoutMessage struct {
	Reason string
}

func (LogoutMessage) Type() string { return TypeLogout }

func (m LogoutMessage) reason() string {
	if reason := strings.TrimSpace(m.Reason); reason != "" {
		return reason
	}
	return DefaultLogoutReason
}

type SetTokensMessage struct {
	AccessToken  string
	RefreshToken string
}

func (SetTokensMessage) Type() string { return TypeSetTokens }

func (m SetTokensMessage) Validate() error {
	if strings.TrimSpace(m.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	if strings.TrimSpace(m.RefreshToken) == "" {
		return commandValidationError("refresh_token", "refresh token is required")
	}
	return nil
}

// RefreshResult is stored in the go-command result collector, if any.
type RefreshResult struct {
	AccessToken string
}

type LogoutResult struct {
	LoggedOut bool
}
