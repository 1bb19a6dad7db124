// Package adminclient is the entry point of the admin backend client: it
// re-exports the client constructor, its options and the shared contracts.
package adminclient

import (
	"context"

	"github.com/goliatone/go-admin-client/client"
	"github.com/goliatone/go-admin-client/core"
)

type Config = core.Config
type MonitorConfig = core.MonitorConfig
type RateLimitConfig = core.RateLimitConfig
type StoreConfig = core.StoreConfig

type Client = client.Client
type Option = client.Option
type RequestOption = client.RequestOption

type Envelope = core.Envelope
type Pagination = core.Pagination
type CredentialPair = core.CredentialPair
type CredentialStore = core.CredentialStore
type Redirector = core.Redirector
type RedirectFunc = core.RedirectFunc
type Upload = core.Upload
type RequestDescriptor = core.RequestDescriptor

var (
	WithLogger          = client.WithLogger
	WithLoggerProvider  = client.WithLoggerProvider
	WithMetricsRecorder = client.WithMetricsRecorder
	WithErrorMapper     = client.WithErrorMapper
	WithConfigProvider  = client.WithConfigProvider
	WithOptionsResolver = client.WithOptionsResolver
	WithHTTPClient      = client.WithHTTPClient
	WithTransport       = client.WithTransportResolver
	WithCredentialStore = client.WithCredentialStore
	WithRedirector      = client.WithRedirector
	WithRateLimitPolicy = client.WithRateLimitPolicy
	WithMonitorClock    = client.WithMonitorClock
	WithRefreshTrigger  = client.WithRefreshTrigger

	WithQuery       = client.WithQuery
	WithQueryValues = client.WithQueryValues
	WithHeader      = client.WithHeader
	WithTimeout     = client.WithTimeout
	WithoutRetry    = client.WithoutRetry
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New builds a client. See client.New for the defaults applied.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	return client.New(ctx, cfg, opts...)
}
