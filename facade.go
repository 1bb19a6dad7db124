package adminclient

import (
	"context"
	"fmt"

	clientcommand "github.com/goliatone/go-admin-client/command"
	"github.com/goliatone/go-admin-client/core"
	clientquery "github.com/goliatone/go-admin-client/query"
)

// CommandQueryService is the client surface the facade handlers call.
type CommandQueryService interface {
	clientcommand.SessionService
	clientquery.Reader
}

type Commands struct {
	Refresh   *clientcommand.RefreshCommand
	Logout    *clientcommand.LogoutCommand
	SetTokens *clientcommand.SetTokensCommand
}

type Queries struct {
	Fetch     *clientquery.FetchQuery
	FetchPage *clientquery.FetchPageQuery
}

// Facade groups the command and query handlers bound to one client.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("adminclient: command/query service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			Refresh:   clientcommand.NewRefreshCommand(service),
			Logout:    clientcommand.NewLogoutCommand(service),
			SetTokens: clientcommand.NewSetTokensCommand(service),
		},
		queries: Queries{
			Fetch:     clientquery.NewFetchQuery(service),
			FetchPage: clientquery.NewFetchPageQuery(service),
		},
	}, nil
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Refresh(ctx context.Context) error {
	if f == nil || f.commands.Refresh == nil {
		return fmt.Errorf("adminclient: facade is not configured")
	}
	return f.commands.Refresh.Execute(ctx, clientcommand.RefreshMessage{})
}

func (f *Facade) Logout(ctx context.Context, reason string) error {
	if f == nil || f.commands.Logout == nil {
		return fmt.Errorf("adminclient: facade is not configured")
	}
	return f.commands.Logout.Execute(ctx, clientcommand.LogoutMessage{Reason: reason})
}

func (f *Facade) SetTokens(ctx context.Context, accessToken string, refreshToken string) error {
	if f == nil || f.commands.SetTokens == nil {
		return fmt.Errorf("adminclient: facade is not configured")
	}
	return f.commands.SetTokens.Execute(ctx, clientcommand.SetTokensMessage{AccessToken: accessToken, RefreshToken: refreshToken})
}

func (f *Facade) Fetch(ctx context.Context, path string, query map[string]string) (core.Envelope, error) {
	if f == nil || f.queries.Fetch == nil {
		return core.Envelope{}, fmt.Errorf("adminclient: facade is not configured")
	}
	return f.queries.Fetch.Query(ctx, clientquery.FetchMessage{Path: path, Query: query})
}

func (f *Facade) FetchPage(ctx context.Context, path string, page int, limit int, query map[string]string) (core.Envelope, error) {
	if f == nil || f.queries.FetchPage == nil {
		return core.Envelope{}, fmt.Errorf("adminclient: facade is not configured")
	}
	return f.queries.FetchPage.Query(ctx, clientquery.FetchPageMessage{Path: path, Page: page, Limit: limit, Query: query})
}
