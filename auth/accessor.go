package auth

import (
	"context"
	"net/http"

	"github.com/goliatone/go-admin-client/core"
	glog "github.com/goliatone/go-logger/glog"
)

// CredentialAccessor reads the current token pair. It prefers the store's
// in-memory snapshot and falls back to a full Load. Reads have no side
// effects and absence is never an error.
type CredentialAccessor struct {
	store    core.CredentialStore
	snapshot core.CredentialSnapshotter
	logger   core.Logger
}

func NewCredentialAccessor(store core.CredentialStore, logger core.Logger) *CredentialAccessor {
	accessor := &CredentialAccessor{
		store:  store,
		logger: glog.Ensure(logger),
	}
	if snapshotter, ok := store.(core.CredentialSnapshotter); ok {
		accessor.snapshot = snapshotter
	}
	return accessor
}

// Pair returns the stored pair when it is complete.
func (a *CredentialAccessor) Pair(ctx context.Context) (core.CredentialPair, bool) {
	if a == nil {
		return core.CredentialPair{}, false
	}
	if a.snapshot != nil {
		if pair, known := a.snapshot.Snapshot(); known {
			if !pair.Complete() {
				return core.CredentialPair{}, false
			}
			return pair, true
		}
	}
	if a.store == nil {
		return core.CredentialPair{}, false
	}
	pair, err := a.store.Load(ctx)
	if err != nil {
		a.logger.Debug("credential store load failed", "error", err)
		return core.CredentialPair{}, false
	}
	if !pair.Complete() {
		return core.CredentialPair{}, false
	}
	return pair, true
}

// AccessToken returns the current access token or "".
func (a *CredentialAccessor) AccessToken(ctx context.Context) string {
	pair, ok := a.Pair(ctx)
	if !ok {
		return ""
	}
	return pair.AccessToken
}

// Headers returns the auth header layer for a request.
func (a *CredentialAccessor) Headers(ctx context.Context) http.Header {
	headers := http.Header{}
	if token := a.AccessToken(ctx); token != "" {
		headers.Set("Authorization", BearerValue(token))
	}
	return headers
}

func BearerValue(token string) string {
	return "Bearer " + token
}
