package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	clientcommand "github.com/goliatone/go-admin-client/command"
	clientquery "github.com/goliatone/go-admin-client/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config  string        `help:"Config file (JSON, YAML or TOML)." type:"path" env:"ADMINCTL_CONFIG"`
	BaseURL string        `help:"Admin backend base URL." name:"base-url" env:"ADMINCTL_BASE_URL"`
	Profile string        `help:"Credential profile." default:"default" env:"ADMINCTL_PROFILE"`
	Store   string        `help:"Credential store driver: sqlite (default), postgres, redis or memory. memory forgets tokens when the command exits." env:"ADMINCTL_STORE"`
	DSN     string        `help:"Credential store DSN, or host:port for redis. sqlite defaults to <user config dir>/adminctl/credentials.db." name:"dsn" env:"ADMINCTL_DSN"`
	Timeout time.Duration `help:"Per request timeout." env:"ADMINCTL_TIMEOUT"`
	Verbose bool          `help:"Log client activity to stderr." short:"v"`
}

type CLI struct {
	Globals

	Get     GetCmd     `cmd:"" help:"GET a path and print the envelope."`
	List    ListCmd    `cmd:"" help:"GET a paginated path and print the normalized page."`
	Post    PostCmd    `cmd:"" help:"POST a JSON body to a path."`
	Tokens  TokensCmd  `cmd:"" help:"Manage stored tokens."`
	Refresh RefreshCmd `cmd:"" help:"Exchange the refresh token now."`
	Logout  LogoutCmd  `cmd:"" help:"Clear the stored session."`
	Watch   WatchCmd   `cmd:"" help:"Keep the session fresh until interrupted."`
}

type GetCmd struct {
	Path  string            `arg:"" help:"Path relative to the base URL."`
	Query map[string]string `help:"Query parameters (key=value)." short:"q"`
}

func (c *GetCmd) Run(app *App) error {
	if err := app.Open(); err != nil {
		return err
	}
	env, err := app.Facade.Fetch(app.ctx, c.Path, c.Query)
	if err != nil {
		return err
	}
	return app.PrintEnvelope(env)
}

type ListCmd struct {
	Path  string            `arg:"" help:"Path relative to the base URL."`
	Page  int               `help:"Page number." default:"1"`
	Limit int               `help:"Page size." default:"20"`
	Query map[string]string `help:"Query parameters (key=value)." short:"q"`
}

func (c *ListCmd) Run(app *App) error {
	if err := app.Open(); err != nil {
		return err
	}
	env, err := app.Facade.Queries().FetchPage.Query(app.ctx, clientquery.FetchPageMessage{
		Path:  c.Path,
		Page:  c.Page,
		Limit: c.Limit,
		Query: c.Query,
	})
	if err != nil {
		return err
	}
	return app.PrintEnvelope(env)
}

type PostCmd struct {
	Path string `arg:"" help:"Path relative to the base URL."`
	Data string `help:"JSON request body." short:"d" default:"{}"`
}

func (c *PostCmd) Run(app *App) error {
	if !json.Valid([]byte(c.Data)) {
		return fmt.Errorf("adminctl: --data is not valid JSON")
	}
	if err := app.Open(); err != nil {
		return err
	}
	return app.PrintEnvelope(app.Client.Post(app.ctx, c.Path, json.RawMessage(c.Data)))
}

type TokensCmd struct {
	Set TokensSetCmd `cmd:"" help:"Store an access and refresh token pair."`
}

type TokensSetCmd struct {
	Access  string `arg:"" help:"Access token."`
	Refresh string `arg:"" help:"Refresh token."`
}

func (c *TokensSetCmd) Run(app *App) error {
	if err := app.Open(); err != nil {
		return err
	}
	if err := app.Facade.Commands().SetTokens.Execute(app.ctx, clientcommand.SetTokensMessage{
		AccessToken:  c.Access,
		RefreshToken: c.Refresh,
	}); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "tokens stored for profile", app.globals.Profile)
	return nil
}

type RefreshCmd struct{}

func (c *RefreshCmd) Run(app *App) error {
	if err := app.Open(); err != nil {
		return err
	}
	if err := app.Facade.Refresh(app.ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "session refreshed")
	return nil
}

type LogoutCmd struct {
	Reason string `help:"Reason recorded with the logout." default:"adminctl logout"`
}

func (c *LogoutCmd) Run(app *App) error {
	if err := app.Open(); err != nil {
		return err
	}
	if err := app.Facade.Logout(app.ctx, c.Reason); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "logged out")
	return nil
}

type WatchCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address (e.g. :9090)." name:"metrics-addr"`
}

func (c *WatchCmd) Run(app *App) error {
	registry := prometheus.NewRegistry()
	app.metrics = registry
	if err := app.Open(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(app.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := strings.TrimSpace(c.MetricsAddr); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				app.logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	app.StartWatchers(ctx)
	fmt.Fprintln(app.out, "watching session for profile", app.globals.Profile)
	<-ctx.Done()
	return nil
}
