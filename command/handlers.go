// Package command exposes the session mutations of the admin client as
// go-command handlers.
package command

import (
	"context"

	"github.com/goliatone/go-admin-client/auth"
	gocmd "github.com/goliatone/go-command"
)

// SessionService is implemented by *client.Client.
type SessionService interface {
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context, reason string) bool
	SetTokens(ctx context.Context, accessToken string, refreshToken string) error
}

type RefreshCommand struct {
	service SessionService
}

func NewRefreshCommand(service SessionService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, _ RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	token, err := c.service.Refresh(ctx)
	if err != nil {
		if auth.IsTerminal(err) {
			return commandAuthError(err, "command: session refresh rejected")
		}
		return err
	}
	storeResult(ctx, RefreshResult{AccessToken: token})
	return nil
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	storeResult(ctx, LogoutResult{LoggedOut: c.service.Logout(ctx, msg.reason())})
	return nil
}

type SetTokensCommand struct {
	service SessionService
}

func NewSetTokensCommand(service SessionService) *SetTokensCommand {
	return &SetTokensCommand{service: service}
}

func (c *SetTokensCommand) Execute(ctx context.Context, msg SetTokensMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.SetTokens(ctx, msg.AccessToken, msg.RefreshToken)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
