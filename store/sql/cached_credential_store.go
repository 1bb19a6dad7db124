package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-admin-client/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialCacheKeyPrefix = "admin-client::credentials::v1"

// CachedCredentialStore fronts a persisted store with a read cache and keeps
// the last known pair for non-blocking snapshots. Writes invalidate the cache
// and notify subscribers.
type CachedCredentialStore struct {
	base     core.CredentialStore
	cache    repositorycache.CacheService
	cacheKey string

	mu        sync.RWMutex
	pair      core.CredentialPair
	known     bool
	nextID    int
	listeners map[int]func(core.CredentialPair)
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	profile string,
	cacheService repositorycache.CacheService,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{
		base:      base,
		cache:     cacheService,
		cacheKey:  CredentialCacheKey(profile),
		listeners: map[int]func(core.CredentialPair){},
	}, nil
}

// CredentialCacheKey returns admin-client::credentials::v1::<profile>.
func CredentialCacheKey(profile string) string {
	if profile == "" {
		profile = DefaultProfile
	}
	return credentialCacheKeyPrefix + "::" + url.PathEscape(profile)
}

func (s *CachedCredentialStore) Load(ctx context.Context) (core.CredentialPair, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.CredentialPair{}, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	pair, err := repositorycache.GetOrFetch(ctx, s.cache, s.cacheKey, func(ctx context.Context) (core.CredentialPair, error) {
		return s.base.Load(ctx)
	})
	if err != nil {
		return core.CredentialPair{}, err
	}
	s.mu.Lock()
	s.pair, s.known = pair, true
	s.mu.Unlock()
	return pair, nil
}

func (s *CachedCredentialStore) SetTokens(ctx context.Context, accessToken string, refreshToken string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.SetTokens(ctx, accessToken, refreshToken); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
		return err
	}
	s.publish(core.CredentialPair{
		AccessToken:  strings.TrimSpace(accessToken),
		RefreshToken: strings.TrimSpace(refreshToken),
	})
	return nil
}

func (s *CachedCredentialStore) Logout(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Logout(ctx); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
		return err
	}
	s.publish(core.CredentialPair{})
	return nil
}

// Snapshot reports the last pair seen by Load or written through the store.
func (s *CachedCredentialStore) Snapshot() (core.CredentialPair, bool) {
	if s == nil {
		return core.CredentialPair{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.known
}

func (s *CachedCredentialStore) Subscribe(listener func(core.CredentialPair)) func() {
	if s == nil || listener == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *CachedCredentialStore) publish(pair core.CredentialPair) {
	s.mu.Lock()
	s.pair, s.known = pair, true
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(core.CredentialPair), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()
	for _, listener := range listeners {
		listener(pair)
	}
}
