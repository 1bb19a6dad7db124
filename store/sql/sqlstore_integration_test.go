package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/ratelimit"
	sqlstore "github.com/goliatone/go-admin-client/store/sql"
)

func openSQLite(t *testing.T) *sqlstore.Database {
	t.Helper()
	dsn := fmt.Sprintf("file:admin-client-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	database, err := sqlstore.Open(context.Background(), core.StoreConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	database := openSQLite(t)

	var tableName string
	if err := database.Client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"admin_client_credentials",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "admin_client_credentials" {
		t.Fatalf("expected admin_client_credentials table, got %q", tableName)
	}
	if database.Dialect != "sqlite" {
		t.Fatalf("expected sqlite dialect, got %q", database.Dialect)
	}
}

func TestOpen_RejectsUnknownDriverAndMissingDSN(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), core.StoreConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(context.Background(), core.StoreConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func TestCredentialStore_VersionsTokensAndLogsOut(t *testing.T) {
	ctx := context.Background()
	database := openSQLite(t)
	store, err := database.Factory.CredentialStore("")
	if err != nil {
		t.Fatalf("credential store: %v", err)
	}
	if store.Profile() != sqlstore.DefaultProfile {
		t.Fatalf("expected default profile, got %q", store.Profile())
	}

	pair, err := store.Load(ctx)
	if err != nil || pair.Complete() {
		t.Fatalf("expected empty pair before login, got %+v (%v)", pair, err)
	}

	if err := store.SetTokens(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("set first tokens: %v", err)
	}
	if err := store.SetTokens(ctx, " access-2 ", "refresh-2"); err != nil {
		t.Fatalf("set second tokens: %v", err)
	}
	pair, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pair.AccessToken != "access-2" || pair.RefreshToken != "refresh-2" {
		t.Fatalf("expected latest trimmed pair, got %+v", pair)
	}

	history, err := store.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Version != 2 || history[0].Status != "active" || history[1].Status != "rotated" {
		t.Fatalf("unexpected history %+v", history)
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("second logout should be a no-op: %v", err)
	}
	pair, err = store.Load(ctx)
	if err != nil || pair.Complete() {
		t.Fatalf("expected cleared pair after logout, got %+v (%v)", pair, err)
	}
	history, _ = store.History(ctx, 1)
	if len(history) != 1 || history[0].Status != "revoked" || history[0].RevocationReason != "logout" {
		t.Fatalf("expected revoked latest version, got %+v", history)
	}

	if err := store.SetTokens(ctx, "", "refresh"); err == nil {
		t.Fatalf("expected partial pair to be rejected")
	}
}

func TestCredentialStore_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	database := openSQLite(t)
	staff, _ := database.Factory.CredentialStore("staff")
	ops, _ := database.Factory.CredentialStore("ops")

	if err := staff.SetTokens(ctx, "staff-access", "staff-refresh"); err != nil {
		t.Fatalf("set staff tokens: %v", err)
	}
	if pair, _ := ops.Load(ctx); pair.Complete() {
		t.Fatalf("expected ops profile to stay empty, got %+v", pair)
	}
	again, _ := database.Factory.CredentialStore("staff")
	if again != staff {
		t.Fatalf("expected factory to reuse the profile store")
	}
}

func TestRateLimitStateStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	database := openSQLite(t)
	store := database.Factory.RateLimitStateStore()
	key := core.RateLimitKey{Host: "Admin.Example.com", BucketKey: "GET /api/users/"}

	if _, err := store.Get(ctx, key); err != ratelimit.ErrStateNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	until := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
	retry := 30 * time.Second
	if err := store.Upsert(ctx, ratelimit.State{
		Key:            key,
		Limit:          100,
		Remaining:      0,
		RetryAfter:     &retry,
		ThrottledUntil: &until,
		LastStatus:     429,
		Attempts:       1,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, ratelimit.State{Key: key, Limit: 100, Remaining: 0, ThrottledUntil: &until, LastStatus: 429, Attempts: 2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	state, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.Key.Host != "admin.example.com" || state.Attempts != 2 || state.LastStatus != 429 {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.ThrottledUntil == nil || !state.ThrottledUntil.Equal(until) {
		t.Fatalf("expected throttled until %v, got %v", until, state.ThrottledUntil)
	}
	if state.RetryAfter != nil {
		t.Fatalf("expected retry after to be cleared by the second upsert")
	}
}

func TestAdaptivePolicy_SharesThrottleThroughSQLStore(t *testing.T) {
	ctx := context.Background()
	database := openSQLite(t)
	first := ratelimit.NewAdaptivePolicy(database.Factory.RateLimitStateStore())
	second := ratelimit.NewAdaptivePolicy(database.Factory.RateLimitStateStore())
	key := core.RateLimitKey{Host: "admin.example.com", BucketKey: "POST /api/uploads/"}

	if err := first.AfterCall(ctx, key, core.ResponseMeta{
		StatusCode: 429,
		Headers:    map[string]string{"Retry-After": "120"},
	}); err != nil {
		t.Fatalf("after call: %v", err)
	}
	var throttled ratelimit.ThrottledError
	err := second.BeforeCall(ctx, key)
	if err == nil {
		t.Fatalf("expected the second policy to observe the throttle")
	}
	if !errors.As(err, &throttled) || throttled.RetryAfter <= 0 {
		t.Fatalf("expected throttled error, got %v", err)
	}
}
