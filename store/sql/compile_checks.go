package sqlstore

import (
	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/ratelimit"
)

var (
	_ core.CredentialStore       = (*CredentialStore)(nil)
	_ core.CredentialStore       = (*CachedCredentialStore)(nil)
	_ core.CredentialSnapshotter = (*CachedCredentialStore)(nil)
	_ core.CredentialObservable  = (*CachedCredentialStore)(nil)
	_ ratelimit.StateStore       = (*RateLimitStateStore)(nil)
)
