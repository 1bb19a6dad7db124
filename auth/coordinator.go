package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// RefreshCoordinator exchanges the refresh token for a new access token.
// Concurrent callers share one flight; the flight runs detached from any
// caller context and is bounded by Config.RefreshTimeout.
type RefreshCoordinator struct {
	config     core.Config
	store      core.CredentialStore
	accessor   *CredentialAccessor
	transport  core.TransportAdapter
	redirector core.Redirector
	observer   *core.Observer

	group    singleflight.Group
	inFlight atomic.Bool

	mu               sync.Mutex
	lastToken        string
	generation       int64
	loggedOutAt      int64
	unsubscribeStore func()
}

type CoordinatorOption func(*RefreshCoordinator)

func WithRedirector(redirector core.Redirector) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if redirector != nil {
			c.redirector = redirector
		}
	}
}

func WithObserver(observer *core.Observer) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if observer != nil {
			c.observer = observer
		}
	}
}

func NewRefreshCoordinator(
	config core.Config,
	store core.CredentialStore,
	transport core.TransportAdapter,
	opts ...CoordinatorOption,
) *RefreshCoordinator {
	config = config.WithDefaults()
	c := &RefreshCoordinator{
		config:      config,
		store:       store,
		transport:   transport,
		redirector:  core.NopRedirector{},
		loggedOutAt: -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.observer == nil {
		c.observer = core.NewObserver(config.ServiceName, nil, nil)
	}
	c.accessor = NewCredentialAccessor(store, c.observer.Logger())
	if observable, ok := store.(core.CredentialObservable); ok {
		c.unsubscribeStore = observable.Subscribe(func(pair core.CredentialPair) {
			c.mu.Lock()
			c.observeLocked(pair)
			c.mu.Unlock()
		})
	}
	return c
}

// Accessor returns the credential accessor bound to the coordinator's store.
func (c *RefreshCoordinator) Accessor() *CredentialAccessor {
	if c == nil {
		return nil
	}
	return c.accessor
}

// InFlight reports whether a refresh flight is running.
func (c *RefreshCoordinator) InFlight() bool {
	return c != nil && c.inFlight.Load()
}

// Generation returns the credential generation; it advances each time a new
// access token is observed.
func (c *RefreshCoordinator) Generation() int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Refresh returns a fresh access token, joining the running flight if any.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	return c.RefreshFrom(ctx, "")
}

// RefreshFrom is Refresh for a caller that was rejected while holding
// staleToken. When the stored token already differs, a concurrent flight won
// the race and the current token is returned without another round trip.
func (c *RefreshCoordinator) RefreshFrom(ctx context.Context, staleToken string) (string, error) {
	if c == nil {
		return "", core.NewError("auth: refresh coordinator is nil", goerrors.CategoryInternal, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if staleToken = strings.TrimSpace(staleToken); staleToken != "" {
		if current := c.accessor.AccessToken(ctx); current != "" && current != staleToken {
			return current, nil
		}
	}

	flight := c.group.DoChan(refreshFlightKey, func() (any, error) {
		c.inFlight.Store(true)
		defer c.inFlight.Store(false)

		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RefreshTimeout)
		defer cancel()
		// a flight that settled between the check above and this one
		// already rotated the pair
		if current := c.newerThan(flightCtx, staleToken); current != "" {
			return current, nil
		}
		return c.refresh(flightCtx)
	})

	select {
	case <-ctx.Done():
		return "", core.WrapError(ctx.Err(), goerrors.CategoryExternal, "auth: caller stopped waiting for refresh", nil)
	case result := <-flight:
		if result.Err != nil {
			return "", result.Err
		}
		token, _ := result.Val.(string)
		return token, nil
	}
}

// newerThan returns the latest known access token when it differs from
// staleToken, or "" when a refresh is still needed.
func (c *RefreshCoordinator) newerThan(ctx context.Context, staleToken string) string {
	if staleToken == "" {
		return ""
	}
	c.mu.Lock()
	last := c.lastToken
	c.mu.Unlock()
	if last != "" && last != staleToken {
		return last
	}
	if current := c.accessor.AccessToken(ctx); current != "" && current != staleToken {
		return current
	}
	return ""
}

// TriggerRefresh lets the coordinator act as the monitor's refresh trigger.
func (c *RefreshCoordinator) TriggerRefresh(ctx context.Context) error {
	_, err := c.Refresh(ctx)
	return err
}

func (c *RefreshCoordinator) refresh(ctx context.Context) (string, error) {
	startedAt := time.Now()
	pair, _ := c.accessor.Pair(ctx)
	c.mu.Lock()
	c.observeLocked(pair)
	c.mu.Unlock()

	if pair.RefreshToken == "" {
		c.ForceLogout(ctx, "missing refresh token")
		c.observer.ObserveOperation(ctx, startedAt, "refresh", "no_refresh_token", nil)
		return "", refreshError(ErrNoRefreshToken, "auth: no refresh token available", nil)
	}
	if c.transport == nil {
		c.ForceLogout(ctx, "refresh transport unavailable")
		return "", refreshError(ErrRefreshRejected, "auth: refresh transport is not configured", nil)
	}

	payload, err := json.Marshal(map[string]string{"refresh": pair.RefreshToken})
	if err != nil {
		return "", core.WrapError(err, goerrors.CategoryInternal, "auth: encode refresh request", nil)
	}
	url := c.config.ResolveURL(c.config.RefreshPath)
	response, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    url,
		Headers: map[string][]string{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
		Body:                 payload,
		Timeout:              c.config.RefreshTimeout,
		MaxResponseBodyBytes: c.config.MaxResponseBodyBytes,
	})
	if err != nil {
		c.ForceLogout(ctx, "refresh request failed")
		c.observer.ObserveOperation(ctx, startedAt, "refresh", "transport_failed", map[string]any{"error": err.Error()})
		return "", refreshError(fmt.Errorf("%w: %v", ErrRefreshRejected, err), "auth: refresh request failed", map[string]any{"url": url})
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		c.ForceLogout(ctx, "refresh rejected")
		c.observer.ObserveOperation(ctx, startedAt, "refresh", "rejected", map[string]any{"status_code": response.StatusCode})
		return "", refreshError(ErrRefreshRejected, "auth: refresh rejected", map[string]any{"status_code": response.StatusCode})
	}

	access, rotated := tokenResponse(response.Body)
	if access == "" {
		c.ForceLogout(ctx, "refresh response without access token")
		c.observer.ObserveOperation(ctx, startedAt, "refresh", "rejected", map[string]any{"status_code": response.StatusCode, "reason": "missing_access"})
		return "", refreshError(ErrRefreshRejected, "auth: refresh response carried no access token", nil)
	}
	refreshToken := pair.RefreshToken
	if rotated != "" {
		refreshToken = rotated
	}
	if err := c.store.SetTokens(ctx, access, refreshToken); err != nil {
		c.ForceLogout(ctx, "persisting refreshed tokens failed")
		return "", refreshError(fmt.Errorf("%w: %v", ErrRefreshRejected, err), "auth: store refreshed tokens", nil)
	}

	c.mu.Lock()
	c.observeLocked(core.CredentialPair{AccessToken: access, RefreshToken: refreshToken})
	c.mu.Unlock()
	c.observer.ObserveOperation(ctx, startedAt, "refresh", "success", map[string]any{
		"status_code": response.StatusCode,
		"rotated":     rotated != "",
	})
	return access, nil
}

// ForceLogout clears the stored credentials and redirects to the login
// path. It fires at most once per credential generation and reports
// whether this call performed the logout.
func (c *RefreshCoordinator) ForceLogout(ctx context.Context, reason string) bool {
	if c == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	pair, _ := c.accessor.Pair(ctx)
	c.observeLocked(pair)
	if c.loggedOutAt == c.generation {
		c.mu.Unlock()
		return false
	}
	c.loggedOutAt = c.generation
	generation := c.generation
	c.mu.Unlock()

	fields := map[string]any{"reason": reason, "generation": generation}
	if c.store != nil {
		if err := c.store.Logout(ctx); err != nil {
			fields["logout_error"] = err.Error()
		}
	}
	if err := c.redirector.RedirectToLogin(ctx, c.config.LoginPath); err != nil {
		fields["redirect_error"] = err.Error()
	}
	c.observer.Log(ctx, "warn", "forced logout", fields)
	return true
}

// Close detaches the coordinator from an observable store.
func (c *RefreshCoordinator) Close() {
	if c == nil || c.unsubscribeStore == nil {
		return
	}
	c.unsubscribeStore()
	c.unsubscribeStore = nil
}

func (c *RefreshCoordinator) observeLocked(pair core.CredentialPair) {
	if !pair.Complete() || pair.AccessToken == c.lastToken {
		return
	}
	c.lastToken = pair.AccessToken
	c.generation++
}
