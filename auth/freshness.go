package auth

import (
	"time"

	"github.com/goliatone/go-admin-client/core"
)

// TokenState captures the lifecycle state derived from a credential pair.
type TokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	CanAutoRefresh  bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// ResolveTokenState evaluates expiry flags for pair at now. Tokens without a
// decodable exp claim have a nil ExpiresAt.
func ResolveTokenState(now time.Time, pair core.CredentialPair, expiringSoonWindow time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = core.DefaultMonitorLowWaterMark
	}

	state := TokenState{
		HasAccessToken:  pair.AccessToken != "",
		HasRefreshToken: pair.RefreshToken != "",
		CanAutoRefresh:  pair.Complete(),
	}
	expiresAt, ok := TokenExpiry(pair.AccessToken)
	if !ok {
		return state
	}
	expiresAt = expiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = expiresAt.Sub(now) < expiringSoonWindow
	return state
}

// ShouldRefresh reports whether a proactive refresh is due.
func ShouldRefresh(state TokenState) bool {
	if !state.CanAutoRefresh || state.ExpiresAt == nil {
		return false
	}
	return state.IsExpired || state.IsExpiringSoon
}
