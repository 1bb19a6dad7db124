package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	adminclient "github.com/goliatone/go-admin-client"
	"github.com/goliatone/go-admin-client/adapters/gologger"
	promadapter "github.com/goliatone/go-admin-client/adapters/prometheus"
	"github.com/goliatone/go-admin-client/client"
	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/store/memory"
	redisstore "github.com/goliatone/go-admin-client/store/redis"
	sqlstore "github.com/goliatone/go-admin-client/store/sql"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// App carries the resolved collaborators for one adminctl invocation.
type App struct {
	Client *client.Client
	Facade *adminclient.Facade

	globals *Globals
	out     io.Writer
	errOut  io.Writer
	ctx     context.Context
	logger  glog.Logger
	metrics prometheus.Registerer

	redis      *redisstore.Store
	subscriber redisstore.Subscriber
	closers    []func()
}

func NewApp(globals *Globals, out io.Writer, errOut io.Writer) *App {
	return &App{
		globals: globals,
		out:     out,
		errOut:  errOut,
		ctx:     context.Background(),
		logger:  glog.Nop(),
	}
}

// Open resolves configuration, opens the credential store and builds the
// client. It is called by each command so --help never touches a store.
func (a *App) Open() error {
	if a.Client != nil {
		return nil
	}
	if a.globals.Verbose {
		a.logger = newStderrLogger(a.errOut)
	}
	loggers := gologger.ForClient(nil, a.logger)
	a.logger = loggers.Client

	cfg, err := a.resolveConfig()
	if err != nil {
		return err
	}
	store, err := a.openStore(cfg.Store)
	if err != nil {
		return err
	}

	opts := []client.Option{
		client.WithLogger(loggers.Client),
		client.WithConfigProvider(core.NewFileConfigProvider(a.globals.Config)),
		client.WithOptionsResolver(core.GoOptionsResolver{}),
		client.WithCredentialStore(store),
		client.WithRedirector(core.RedirectFunc(func(_ context.Context, loginPath string) error {
			_, err := fmt.Fprintf(a.errOut, "session ended; log in at %s and run `adminctl tokens set`\n", loginPath)
			return err
		})),
	}
	if a.metrics != nil {
		opts = append(opts, client.WithMetricsRecorder(promadapter.NewRecorder(a.metrics)))
	}

	c, err := client.New(a.ctx, a.runtimeConfig(), opts...)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, c.Close)
	facade, err := adminclient.NewFacade(c)
	if err != nil {
		return err
	}
	a.Client = c
	a.Facade = facade
	return nil
}

// runtimeConfig is the flag layer; zero values leave file and defaults alone.
func (a *App) runtimeConfig() core.Config {
	return core.Config{
		BaseURL:        strings.TrimSpace(a.globals.BaseURL),
		RequestTimeout: a.globals.Timeout,
		Store: core.StoreConfig{
			Driver: strings.TrimSpace(a.globals.Store),
			DSN:    strings.TrimSpace(a.globals.DSN),
		},
	}
}

func (a *App) resolveConfig() (core.Config, error) {
	provider := cliConfigProvider{file: core.NewFileConfigProvider(a.globals.Config)}
	cfg, err := core.ResolveConfig(a.ctx, a.runtimeConfig(), provider, core.GoOptionsResolver{})
	if err != nil {
		return core.Config{}, err
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return core.Config{}, fmt.Errorf("adminctl: base url is required (--base-url, ADMINCTL_BASE_URL or base_url in --config)")
	}
	return cfg, nil
}

// cliConfigProvider keeps sessions across invocations: unless the config
// file or flags pick another driver, tokens go to a sqlite file.
type cliConfigProvider struct {
	file *core.FileConfigProvider
}

func (p cliConfigProvider) Load(ctx context.Context, defaults core.Config) (core.Config, error) {
	defaults.Store.Driver = sqlstore.DriverSQLite
	return p.file.Load(ctx, defaults)
}

// defaultSQLiteDSN points at <user config dir>/adminctl/credentials.db.
func defaultSQLiteDSN() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("adminctl: locate config dir: %w", err)
	}
	dir = filepath.Join(dir, "adminctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("adminctl: create %s: %w", dir, err)
	}
	return "file:" + filepath.Join(dir, "credentials.db"), nil
}

func (a *App) openStore(cfg core.StoreConfig) (core.CredentialStore, error) {
	profile := a.globals.Profile
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return memory.New(core.CredentialPair{}), nil
	case "sqlite", "sqlite3", "postgres", "postgresql", "pg":
		if strings.HasPrefix(strings.ToLower(cfg.Driver), "sqlite") && strings.TrimSpace(cfg.DSN) == "" {
			dsn, err := defaultSQLiteDSN()
			if err != nil {
				return nil, err
			}
			cfg.DSN = dsn
		}
		db, err := sqlstore.Open(a.ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		base, err := db.Factory.CredentialStore(profile)
		if err != nil {
			return nil, err
		}
		cacheConfig := repositorycache.DefaultConfig()
		if cfg.CacheTTL > 0 {
			cacheConfig.TTL = cfg.CacheTTL
		}
		cacheService, err := repositorycache.NewCacheService(cacheConfig)
		if err != nil {
			return nil, fmt.Errorf("adminctl: credential cache: %w", err)
		}
		return sqlstore.NewCachedCredentialStore(base, profile, cacheService)
	case "redis":
		addr := cfg.DSN
		if strings.TrimSpace(addr) == "" {
			addr = "127.0.0.1:6379"
		}
		rdb, err := redisstore.Dial(a.ctx, addr, "", 0)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		store, err := redisstore.New(rdb, profile, redisstore.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		if _, err := store.Load(a.ctx); err != nil {
			return nil, err
		}
		a.redis = store
		a.subscriber = rdb
		return store, nil
	default:
		return nil, fmt.Errorf("adminctl: unsupported store driver %q", cfg.Driver)
	}
}

// StartWatchers runs the proactive monitor and, for redis, follows session
// changes made by other processes.
func (a *App) StartWatchers(ctx context.Context) {
	a.Client.Start(ctx)
	if a.redis != nil && a.subscriber != nil {
		go func() {
			if err := a.redis.Watch(ctx, a.subscriber); err != nil && ctx.Err() == nil {
				a.logger.Error("credential watch stopped", "error", err)
			}
		}()
	}
}

func (a *App) PrintEnvelope(env core.Envelope) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("request failed: %s", env.Error)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
