package client

import (
	"time"

	"github.com/goliatone/go-admin-client/auth"
	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/transport"
	"github.com/jonboulle/clockwork"
)

type clientBuilder struct {
	logger            core.Logger
	loggerProvider    core.LoggerProvider
	metricsRecorder   core.MetricsRecorder
	errorMapper       core.ErrorMapper
	configProvider    core.ConfigProvider
	optionsResolver   core.OptionsResolver
	httpClient        transport.HTTPDoer
	transportResolver core.TransportResolver
	credentialStore   core.CredentialStore
	redirector        core.Redirector
	rateLimitPolicy   core.RateLimitPolicy
	monitorClock      clockwork.Clock
	refreshTrigger    auth.RefreshTrigger
}

type Option func(*clientBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *clientBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

// WithHTTPClient sets the client shared by the default transport registry.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(b *clientBuilder) {
		b.httpClient = client
	}
}

// WithTransportResolver replaces the default registry. It must resolve the
// "rest" and "upload" kinds.
func WithTransportResolver(resolver core.TransportResolver) Option {
	return func(b *clientBuilder) {
		b.transportResolver = resolver
	}
}

func WithCredentialStore(store core.CredentialStore) Option {
	return func(b *clientBuilder) {
		b.credentialStore = store
	}
}

func WithRedirector(redirector core.Redirector) Option {
	return func(b *clientBuilder) {
		b.redirector = redirector
	}
}

func WithRateLimitPolicy(policy core.RateLimitPolicy) Option {
	return func(b *clientBuilder) {
		b.rateLimitPolicy = policy
	}
}

func WithMonitorClock(clock clockwork.Clock) Option {
	return func(b *clientBuilder) {
		b.monitorClock = clock
	}
}

// WithRefreshTrigger routes proactive refreshes somewhere other than the
// coordinator, such as a job queue.
func WithRefreshTrigger(trigger auth.RefreshTrigger) Option {
	return func(b *clientBuilder) {
		b.refreshTrigger = trigger
	}
}

// RequestOption adjusts the descriptor built by the verb helpers.
type RequestOption func(*core.RequestDescriptor)

func WithQuery(key string, value string) RequestOption {
	return func(d *core.RequestDescriptor) {
		if d.Query == nil {
			d.Query = map[string]string{}
		}
		d.Query[key] = value
	}
}

// WithQueryValues merges values into the query string.
func WithQueryValues(values map[string]string) RequestOption {
	return func(d *core.RequestDescriptor) {
		for key, value := range values {
			if d.Query == nil {
				d.Query = map[string]string{}
			}
			d.Query[key] = value
		}
	}
}

func WithHeader(key string, value string) RequestOption {
	return func(d *core.RequestDescriptor) {
		if d.Headers == nil {
			d.Headers = map[string]string{}
		}
		d.Headers[key] = value
	}
}

func WithTimeout(timeout time.Duration) RequestOption {
	return func(d *core.RequestDescriptor) {
		d.Timeout = timeout
	}
}

// WithoutRetry disables the refresh and retry on 401, e.g. for login.
func WithoutRetry() RequestOption {
	return func(d *core.RequestDescriptor) {
		*d = d.WithoutRetry()
	}
}
