package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultRequestTimeout        = 30 * time.Second
	DefaultRefreshTimeout        = 10 * time.Second
	DefaultRefreshPath           = "/api/coreadmin/token/refresh/"
	DefaultLoginPath             = "/login"
	DefaultMaxResponseBodyBytes  = int64(10 << 20)
	DefaultMonitorInterval       = time.Minute
	DefaultMonitorLowWaterMark   = 5 * time.Minute
	DefaultCredentialCacheTTL    = 30 * time.Second
	DefaultCredentialStoreDriver = "memory"
)

type MonitorConfig struct {
	Disabled     bool          `koanf:"disabled" mapstructure:"disabled"`
	Interval     time.Duration `koanf:"interval" mapstructure:"interval"`
	LowWaterMark time.Duration `koanf:"low_water_mark" mapstructure:"low_water_mark"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `koanf:"burst" mapstructure:"burst"`
}

type StoreConfig struct {
	Driver   string        `koanf:"driver" mapstructure:"driver"`
	DSN      string        `koanf:"dsn" mapstructure:"dsn"`
	CacheTTL time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

type Config struct {
	ServiceName          string          `koanf:"service_name" mapstructure:"service_name"`
	BaseURL              string          `koanf:"base_url" mapstructure:"base_url"`
	RequestTimeout       time.Duration   `koanf:"request_timeout" mapstructure:"request_timeout"`
	RefreshTimeout       time.Duration   `koanf:"refresh_timeout" mapstructure:"refresh_timeout"`
	RefreshPath          string          `koanf:"refresh_path" mapstructure:"refresh_path"`
	LoginPath            string          `koanf:"login_path" mapstructure:"login_path"`
	MaxResponseBodyBytes int64           `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	Monitor              MonitorConfig   `koanf:"monitor" mapstructure:"monitor"`
	RateLimit            RateLimitConfig `koanf:"rate_limit" mapstructure:"rate_limit"`
	Store                StoreConfig     `koanf:"store" mapstructure:"store"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:          "admin-client",
		RequestTimeout:       DefaultRequestTimeout,
		RefreshTimeout:       DefaultRefreshTimeout,
		RefreshPath:          DefaultRefreshPath,
		LoginPath:            DefaultLoginPath,
		MaxResponseBodyBytes: DefaultMaxResponseBodyBytes,
		Monitor: MonitorConfig{
			Interval:     DefaultMonitorInterval,
			LowWaterMark: DefaultMonitorLowWaterMark,
		},
		Store: StoreConfig{
			Driver:   DefaultCredentialStoreDriver,
			CacheTTL: DefaultCredentialCacheTTL,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: base_url %q is invalid", base)
		}
	}
	if c.RequestTimeout < 0 || c.RefreshTimeout < 0 {
		return fmt.Errorf("core: timeouts must be >= 0")
	}
	if c.Monitor.Interval < 0 || c.Monitor.LowWaterMark < 0 {
		return fmt.Errorf("core: monitor durations must be >= 0")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("core: rate_limit values must be >= 0")
	}
	return nil
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = defaults.ServiceName
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = defaults.RefreshTimeout
	}
	if strings.TrimSpace(c.RefreshPath) == "" {
		c.RefreshPath = defaults.RefreshPath
	}
	if strings.TrimSpace(c.LoginPath) == "" {
		c.LoginPath = defaults.LoginPath
	}
	if c.MaxResponseBodyBytes <= 0 {
		c.MaxResponseBodyBytes = defaults.MaxResponseBodyBytes
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = defaults.Monitor.Interval
	}
	if c.Monitor.LowWaterMark <= 0 {
		c.Monitor.LowWaterMark = defaults.Monitor.LowWaterMark
	}
	if strings.TrimSpace(c.Store.Driver) == "" {
		c.Store.Driver = defaults.Store.Driver
	}
	if c.Store.CacheTTL <= 0 {
		c.Store.CacheTTL = defaults.Store.CacheTTL
	}
	return c
}

// ResolveURL joins path onto BaseURL; absolute URLs are returned untouched.
func (c Config) ResolveURL(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
