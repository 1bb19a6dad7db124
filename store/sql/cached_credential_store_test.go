package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-admin-client/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type countingCredentialStore struct {
	mu        sync.Mutex
	pair      core.CredentialPair
	loadCalls int
	loadErr   error
}

func (s *countingCredentialStore) Load(context.Context) (core.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	if s.loadErr != nil {
		return core.CredentialPair{}, s.loadErr
	}
	return s.pair, nil
}

func (s *countingCredentialStore) SetTokens(_ context.Context, access string, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = core.CredentialPair{AccessToken: access, RefreshToken: refresh}
	return nil
}

func (s *countingCredentialStore) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = core.CredentialPair{}
	return nil
}

func TestCachedCredentialStore_LoadMissThenHit(t *testing.T) {
	base := &countingCredentialStore{pair: core.CredentialPair{AccessToken: "a", RefreshToken: "r"}}
	store, err := NewCachedCredentialStore(base, "default", newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, known := store.Snapshot(); known {
		t.Fatalf("expected unknown snapshot before the first load")
	}
	for i := 0; i < 3; i++ {
		pair, err := store.Load(context.Background())
		if err != nil || pair.AccessToken != "a" {
			t.Fatalf("load %d: %+v (%v)", i, pair, err)
		}
	}
	if base.loadCalls != 1 {
		t.Fatalf("expected one base load, got %d", base.loadCalls)
	}
	if pair, known := store.Snapshot(); !known || pair.AccessToken != "a" {
		t.Fatalf("expected snapshot after load, got %+v known=%v", pair, known)
	}
}

func TestCachedCredentialStore_WritesInvalidateAndNotify(t *testing.T) {
	ctx := context.Background()
	base := &countingCredentialStore{pair: core.CredentialPair{AccessToken: "a1", RefreshToken: "r1"}}
	store, _ := NewCachedCredentialStore(base, "default", newTestCacheService(t))

	var seen []core.CredentialPair
	unsubscribe := store.Subscribe(func(pair core.CredentialPair) {
		seen = append(seen, pair)
	})

	_, _ = store.Load(ctx)
	if err := store.SetTokens(ctx, "a2", "r2"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	pair, _ := store.Load(ctx)
	if pair.AccessToken != "a2" || base.loadCalls != 2 {
		t.Fatalf("expected cache invalidation on write, got %+v after %d loads", pair, base.loadCalls)
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if pair, known := store.Snapshot(); !known || pair.Complete() {
		t.Fatalf("expected known empty snapshot after logout, got %+v", pair)
	}

	unsubscribe()
	_ = store.SetTokens(ctx, "a3", "r3")
	if len(seen) != 2 || seen[0].AccessToken != "a2" || seen[1].Complete() {
		t.Fatalf("unexpected notifications %+v", seen)
	}
}

func TestCachedCredentialStore_NotifiesInSubscriptionOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := NewCachedCredentialStore(&countingCredentialStore{}, "default", newTestCacheService(t))

	var order []int
	for i := 0; i < 8; i++ {
		i := i
		store.Subscribe(func(core.CredentialPair) { order = append(order, i) })
	}
	for round := 0; round < 5; round++ {
		order = order[:0]
		if err := store.SetTokens(ctx, "a", "r"); err != nil {
			t.Fatalf("set tokens: %v", err)
		}
		for i, got := range order {
			if got != i {
				t.Fatalf("round %d: expected subscription order, got %v", round, order)
			}
		}
		if len(order) != 8 {
			t.Fatalf("round %d: expected 8 notifications, got %d", round, len(order))
		}
	}
}

func TestCachedCredentialStore_PropagatesLoadErrors(t *testing.T) {
	boom := errors.New("db down")
	store, _ := NewCachedCredentialStore(&countingCredentialStore{loadErr: boom}, "", newTestCacheService(t))
	if _, err := store.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected base error, got %v", err)
	}
	if _, known := store.Snapshot(); known {
		t.Fatalf("failed load must not mark the snapshot known")
	}
}

func TestCachedCredentialStore_RequiresCollaborators(t *testing.T) {
	if _, err := NewCachedCredentialStore(nil, "default", newTestCacheService(t)); err == nil {
		t.Fatalf("expected missing base store error")
	}
	if _, err := NewCachedCredentialStore(&countingCredentialStore{}, "default", nil); err == nil {
		t.Fatalf("expected missing cache error")
	}
	if CredentialCacheKey("") != "admin-client::credentials::v1::default" {
		t.Fatalf("unexpected cache key %q", CredentialCacheKey(""))
	}
}

func newTestCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
