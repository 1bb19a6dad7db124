// Package client is the admin backend request executor. Every call returns a
// core.Envelope; expired access tokens are refreshed once through the shared
// auth.RefreshCoordinator and the call is retried.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-admin-client/auth"
	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/ratelimit"
	"github.com/goliatone/go-admin-client/store/memory"
	"github.com/goliatone/go-admin-client/transport"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Client struct {
	config          core.Config
	logger          core.Logger
	observer        *core.Observer
	store           core.CredentialStore
	rest            core.TransportAdapter
	upload          core.TransportAdapter
	coordinator     *auth.RefreshCoordinator
	accessor        *auth.CredentialAccessor
	monitor         *auth.Monitor
	limiter         *ratelimit.Limiter
	rateLimitPolicy core.RateLimitPolicy
}

// New resolves configuration and wires the client collaborators. Missing
// collaborators get defaults: an in-memory credential store, the default
// transport registry on http.DefaultClient and an adaptive rate limit policy.
func New(ctx context.Context, cfg core.Config, opts ...Option) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	builder := clientBuilder{errorMapper: core.DefaultErrorMapper()}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	_, logger := glog.Resolve("admin-client", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)

	resolved, err := core.ResolveConfig(ctx, cfg, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	if err := resolved.Validate(); err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.credentialStore == nil {
		builder.credentialStore = memory.New(core.CredentialPair{})
	}
	if builder.transportResolver == nil {
		httpClient := builder.httpClient
		if httpClient == nil {
			httpClient = http.DefaultClient
		}
		builder.transportResolver = transport.NewDefaultRegistry(httpClient)
	}
	if builder.rateLimitPolicy == nil {
		builder.rateLimitPolicy = ratelimit.NewAdaptivePolicy(nil)
	}

	rest, err := builder.transportResolver.Resolve(transport.KindREST)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	upload, err := builder.transportResolver.Resolve(transport.KindUpload)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	observer := core.NewObserver(resolved.ServiceName, logger, builder.metricsRecorder)
	coordinator := auth.NewRefreshCoordinator(
		resolved,
		builder.credentialStore,
		rest,
		auth.WithRedirector(builder.redirector),
		auth.WithObserver(observer),
	)

	client := &Client{
		config:          resolved,
		logger:          logger,
		observer:        observer,
		store:           builder.credentialStore,
		rest:            rest,
		upload:          upload,
		coordinator:     coordinator,
		accessor:        coordinator.Accessor(),
		limiter:         ratelimit.NewLimiter(resolved.RateLimit),
		rateLimitPolicy: builder.rateLimitPolicy,
	}
	if !resolved.Monitor.Disabled {
		client.monitor = auth.NewMonitor(coordinator, resolved.Monitor,
			auth.WithMonitorClock(builder.monitorClock),
			auth.WithMonitorTrigger(builder.refreshTrigger),
			auth.WithMonitorLogger(logger),
		)
	}
	return client, nil
}

func mapBuildError(mapper core.ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		mapper = core.DefaultErrorMapper()
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return core.WrapError(err, goerrors.CategoryInternal, fmt.Sprintf("client: build failed: %v", err), nil)
}

func (c *Client) Config() core.Config {
	return c.config
}

func (c *Client) Coordinator() *auth.RefreshCoordinator {
	return c.coordinator
}

func (c *Client) Accessor() *auth.CredentialAccessor {
	return c.accessor
}

func (c *Client) Store() core.CredentialStore {
	return c.store
}

// Monitor is nil when monitor.disabled is set.
func (c *Client) Monitor() *auth.Monitor {
	return c.monitor
}

// Start launches the proactive refresh monitor, if enabled.
func (c *Client) Start(ctx context.Context) {
	if c == nil || c.monitor == nil {
		return
	}
	c.monitor.Start(ctx)
}

// Close stops the monitor and detaches the coordinator from the store.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.monitor != nil {
		c.monitor.Stop()
	}
	c.coordinator.Close()
}

// SetTokens stores a freshly issued pair, e.g. after login.
func (c *Client) SetTokens(ctx context.Context, accessToken string, refreshToken string) error {
	return c.store.SetTokens(ctx, accessToken, refreshToken)
}

// Logout forces the logout boundary for the current session.
func (c *Client) Logout(ctx context.Context, reason string) bool {
	return c.coordinator.ForceLogout(ctx, reason)
}

// Refresh exchanges the refresh token now, sharing any running flight.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.coordinator.Refresh(ctx)
}

func requestTimeout(desc core.RequestDescriptor, config core.Config) time.Duration {
	if desc.Timeout > 0 {
		return desc.Timeout
	}
	return config.RequestTimeout
}
