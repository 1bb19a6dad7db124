package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	"github.com/goliatone/go-config/config"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// DefaultErrorMapper maps plain errors onto the client text codes.
func DefaultErrorMapper() ErrorMapper {
	return defaultErrorMapper
}

// ResolveConfig loads configuration through provider and layers it with the
// runtime config using resolver. Nil collaborators fall back to defaults.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return Config{}, err
	}
	return resolved.WithDefaults(), nil
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return copyAnyMap(l.Values), nil
}

// DefaultEnvPrefix scopes environment overrides, e.g.
// ADMIN_CLIENT_BASE_URL or ADMIN_CLIENT_STORE__DSN.
const DefaultEnvPrefix = "ADMIN_CLIENT_"

// FileConfigProvider loads a JSON, YAML or TOML file (by extension) plus
// prefixed environment variables through a go-config container. Durations
// are written as Go duration strings ("30s", "5m").
type FileConfigProvider struct {
	Path      string
	EnvPrefix string
}

func NewFileConfigProvider(path string) *FileConfigProvider {
	return &FileConfigProvider{Path: path, EnvPrefix: DefaultEnvPrefix}
}

func (p *FileConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	container := config.New(defaults)
	if path := strings.TrimSpace(p.Path); path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("core: config file %q: %w", path, err)
		}
		container.WithProvider(config.FileProvider[Config](path))
	} else {
		container.WithConfigPath("")
	}
	if prefix := strings.TrimSpace(p.EnvPrefix); prefix != "" {
		container.WithProvider(config.EnvProvider[Config](prefix, "__"))
	}
	if err := container.Load(ctx); err != nil {
		return Config{}, err
	}
	return container.Raw(), nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// configToLayerMap flattens cfg into an options layer. Zero values are
// omitted from non-default layers so they never shadow lower layers.
func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = value
		}
	}
	setString("service_name", cfg.ServiceName)
	setString("base_url", cfg.BaseURL)
	setString("refresh_path", cfg.RefreshPath)
	setString("login_path", cfg.LoginPath)
	if includeZero || cfg.RequestTimeout > 0 {
		layer["request_timeout"] = cfg.RequestTimeout
	}
	if includeZero || cfg.RefreshTimeout > 0 {
		layer["refresh_timeout"] = cfg.RefreshTimeout
	}
	if includeZero || cfg.MaxResponseBodyBytes > 0 {
		layer["max_response_body_bytes"] = cfg.MaxResponseBodyBytes
	}

	monitor := map[string]any{}
	if includeZero || cfg.Monitor.Disabled {
		monitor["disabled"] = cfg.Monitor.Disabled
	}
	if includeZero || cfg.Monitor.Interval > 0 {
		monitor["interval"] = cfg.Monitor.Interval
	}
	if includeZero || cfg.Monitor.LowWaterMark > 0 {
		monitor["low_water_mark"] = cfg.Monitor.LowWaterMark
	}
	if len(monitor) > 0 {
		layer["monitor"] = monitor
	}

	rateLimit := map[string]any{}
	if includeZero || cfg.RateLimit.RequestsPerSecond > 0 {
		rateLimit["requests_per_second"] = cfg.RateLimit.RequestsPerSecond
	}
	if includeZero || cfg.RateLimit.Burst > 0 {
		rateLimit["burst"] = cfg.RateLimit.Burst
	}
	if len(rateLimit) > 0 {
		layer["rate_limit"] = rateLimit
	}

	store := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Store.Driver) != "" {
		store["driver"] = cfg.Store.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Store.DSN) != "" {
		store["dsn"] = cfg.Store.DSN
	}
	if includeZero || cfg.Store.CacheTTL > 0 {
		store["cache_ttl"] = cfg.Store.CacheTTL
	}
	if len(store) > 0 {
		layer["store"] = store
	}
	return layer
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
