package redisstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goliatone/go-admin-client/core"
	"github.com/tidwall/gjson"
)

type fakeRedis struct {
	mu        sync.Mutex
	hashes    map[string]map[string]string
	published []string
	failWith  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: map[string]map[string]string{}}
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.StringStringMapCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewStringStringMapResult(nil, f.failWith)
	}
	out := map[string]string{}
	for field, value := range f.hashes[key] {
		out[field] = value
	}
	return redis.NewStringStringMapResult(out, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewIntResult(0, f.failWith)
	}
	hash := f.hashes[key]
	if hash == nil {
		hash = map[string]string{}
		f.hashes[key] = hash
	}
	for _, value := range values {
		if fields, ok := value.(map[string]interface{}); ok {
			for field, v := range fields {
				hash[field] = fmt.Sprint(v)
			}
		}
	}
	return redis.NewIntResult(int64(len(hash)), nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.hashes, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Publish(_ context.Context, _ string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch typed := message.(type) {
	case []byte:
		f.published = append(f.published, string(typed))
	default:
		f.published = append(f.published, fmt.Sprint(typed))
	}
	return redis.NewIntResult(1, nil)
}

func TestStore_SetLoadLogout(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store, err := New(fake, "staff", WithPrefix("tenant-a"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Key() != "tenant-a:credentials:staff" {
		t.Fatalf("unexpected key %q", store.Key())
	}

	if _, known := store.Snapshot(); known {
		t.Fatalf("expected unknown snapshot before load")
	}
	if err := store.SetTokens(ctx, " access ", "refresh"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	pair, err := store.Load(ctx)
	if err != nil || pair.AccessToken != "access" || pair.RefreshToken != "refresh" {
		t.Fatalf("unexpected pair %+v (%v)", pair, err)
	}
	if fake.hashes[store.Key()][fieldUpdatedAt] == "" {
		t.Fatalf("expected updated_at to be stored")
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	pair, _ = store.Load(ctx)
	if pair.Complete() {
		t.Fatalf("expected empty pair after logout, got %+v", pair)
	}

	if len(fake.published) != 2 {
		t.Fatalf("expected two events, got %v", fake.published)
	}
	for _, payload := range fake.published {
		if gjson.Get(payload, "access_token").Exists() {
			t.Fatalf("events must not carry token values: %s", payload)
		}
	}
	if gjson.Get(fake.published[1], "event").String() != EventLogout {
		t.Fatalf("expected logout event, got %s", fake.published[1])
	}
}

func TestStore_RejectsPartialPairAndWrapsErrors(t *testing.T) {
	fake := newFakeRedis()
	store, _ := New(fake, "")
	if err := store.SetTokens(context.Background(), "access", " "); err == nil {
		t.Fatalf("expected partial pair to be rejected")
	}

	boom := errors.New("connection refused")
	fake.failWith = boom
	if _, err := store.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped redis error, got %v", err)
	}
	if _, err := New(nil, "default"); err == nil {
		t.Fatalf("expected missing client error")
	}
}

func TestStore_HandleEventFromOtherProcess(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	writer, _ := New(fake, "default")
	reader, _ := New(fake, "default")

	var seen []core.CredentialPair
	reader.Subscribe(func(pair core.CredentialPair) {
		seen = append(seen, pair)
	})

	if err := writer.SetTokens(ctx, "a1", "r1"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	reader.HandleEvent(ctx, fake.published[0])
	if len(seen) != 1 || seen[0].AccessToken != "a1" {
		t.Fatalf("expected reader to reload the new pair, got %+v", seen)
	}

	// own events are already applied
	writerSeen := 0
	writer.Subscribe(func(core.CredentialPair) { writerSeen++ })
	writer.HandleEvent(ctx, fake.published[0])
	if writerSeen != 0 {
		t.Fatalf("expected own event to be ignored")
	}

	reader.HandleEvent(ctx, `{"event":"logout","profile":"other","origin":"x"}`)
	reader.HandleEvent(ctx, `not json`)
	if len(seen) != 1 {
		t.Fatalf("expected foreign profile and garbage events to be ignored, got %+v", seen)
	}

	_ = writer.Logout(ctx)
	reader.HandleEvent(ctx, fake.published[1])
	if pair, known := reader.Snapshot(); !known || pair.Complete() {
		t.Fatalf("expected reader snapshot cleared, got %+v", pair)
	}
}

// TestStore_WatchAgainstServer needs ADMIN_CLIENT_REDIS_ADDR.
func TestStore_WatchAgainstServer(t *testing.T) {
	addr := os.Getenv("ADMIN_CLIENT_REDIS_ADDR")
	if addr == "" {
		t.Skip("ADMIN_CLIENT_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Dial(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	prefix := fmt.Sprintf("admin-client-test-%d", time.Now().UnixNano())
	writer, _ := New(client, "default", WithPrefix(prefix))
	reader, _ := New(client, "default", WithPrefix(prefix))
	defer client.Del(context.Background(), writer.Key())

	changed := make(chan core.CredentialPair, 1)
	reader.Subscribe(func(pair core.CredentialPair) {
		select {
		case changed <- pair:
		default:
		}
	})
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() { _ = reader.Watch(watchCtx, client) }()
	time.Sleep(200 * time.Millisecond)

	if err := writer.SetTokens(ctx, "access", "refresh"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	select {
	case pair := <-changed:
		if pair.AccessToken != "access" {
			t.Fatalf("unexpected pair %+v", pair)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for change event")
	}
}
