package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/ratelimit"
)

type stubRateLimitStateStore struct {
	mu          sync.Mutex
	state       ratelimit.State
	getCalls    int
	upsertCalls int
	getErr      error
}

func (s *stubRateLimitStateStore) Get(_ context.Context, _ core.RateLimitKey) (ratelimit.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return ratelimit.State{}, s.getErr
	}
	return cloneRateLimitState(s.state), nil
}

func (s *stubRateLimitStateStore) Upsert(_ context.Context, state ratelimit.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	s.state = cloneRateLimitState(state)
	return nil
}

func TestCachedRateLimitStateStore_Get_MissFetchThenHit(t *testing.T) {
	key := core.RateLimitKey{Host: "admin.example.com", BucketKey: "get /api/users"}
	base := &stubRateLimitStateStore{state: ratelimit.State{Key: key, Limit: 60, Remaining: 59, UpdatedAt: time.Now().UTC()}}
	store, err := NewCachedRateLimitStateStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := store.Get(context.Background(), key); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be a cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedRateLimitStateStore_Upsert_InvalidatesCachedKey(t *testing.T) {
	key := core.RateLimitKey{Host: "admin.example.com", BucketKey: "post /api/uploads"}
	base := &stubRateLimitStateStore{state: ratelimit.State{Key: key, Limit: 60, Remaining: 59}}
	store, _ := NewCachedRateLimitStateStore(base, newTestCacheService(t))

	if _, err := store.Get(context.Background(), key); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := store.Upsert(context.Background(), ratelimit.State{Key: key, Limit: 60, Remaining: 10}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	state, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if base.getCalls != 2 || base.upsertCalls != 1 {
		t.Fatalf("expected invalidation to force a base read, gets=%d upserts=%d", base.getCalls, base.upsertCalls)
	}
	if state.Remaining != 10 {
		t.Fatalf("expected refreshed remaining=10, got %d", state.Remaining)
	}
}

func TestCachedRateLimitStateStore_KeyNormalizationUsesSingleCacheEntry(t *testing.T) {
	base := &stubRateLimitStateStore{state: ratelimit.State{Limit: 60}}
	store, _ := NewCachedRateLimitStateStore(base, newTestCacheService(t))

	first := core.RateLimitKey{Host: " Admin.Example.COM ", BucketKey: " GET /api/users "}
	second := core.RateLimitKey{Host: "admin.example.com", BucketKey: "get /api/users"}
	_, _ = store.Get(context.Background(), first)
	_, _ = store.Get(context.Background(), second)
	if base.getCalls != 1 {
		t.Fatalf("expected normalized keys to share a cache entry, base get calls=%d", base.getCalls)
	}
}

func TestRateLimitStateCacheKey_Contract(t *testing.T) {
	key, err := RateLimitStateCacheKey(core.RateLimitKey{Host: " Admin.Example.com:8443 ", BucketKey: " GET /api/users/ "})
	if err != nil {
		t.Fatalf("build cache key: %v", err)
	}
	const expected = "admin-client::ratelimit_state::v1::admin.example.com:8443::get%20%2Fapi%2Fusers%2F"
	if key != expected {
		t.Fatalf("unexpected cache key: got %q want %q", key, expected)
	}
	if _, err := RateLimitStateCacheKey(core.RateLimitKey{Host: "admin.example.com"}); err == nil {
		t.Fatalf("expected missing bucket key to be rejected")
	}
}

func TestCachedRateLimitStateStore_PropagatesBaseErrors(t *testing.T) {
	base := &stubRateLimitStateStore{getErr: ratelimit.ErrStateNotFound}
	store, _ := NewCachedRateLimitStateStore(base, newTestCacheService(t))

	_, err := store.Get(context.Background(), core.RateLimitKey{Host: "admin.example.com", BucketKey: "get /missing"})
	if !errors.Is(err, ratelimit.ErrStateNotFound) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
}
