package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/store/memory"
)

func TestCredentialAccessor_PrefersSnapshot(t *testing.T) {
	store := memory.New(core.CredentialPair{AccessToken: "snap", RefreshToken: "r"})
	accessor := NewCredentialAccessor(store, nil)

	headers := accessor.Headers(context.Background())
	if got := headers.Get("authorization"); got != "Bearer snap" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestCredentialAccessor_FallsBackToLoad(t *testing.T) {
	store := &loadOnlyStore{pair: core.CredentialPair{AccessToken: "loaded", RefreshToken: "r"}}
	accessor := NewCredentialAccessor(store, nil)

	if token := accessor.AccessToken(context.Background()); token != "loaded" {
		t.Fatalf("expected loaded token, got %q", token)
	}
	if store.loads.Load() != 1 {
		t.Fatalf("expected one store load, got %d", store.loads.Load())
	}
}

func TestCredentialAccessor_PartialPairIsAbsent(t *testing.T) {
	accessor := NewCredentialAccessor(memory.New(core.CredentialPair{AccessToken: "only-access"}), nil)
	if _, ok := accessor.Pair(context.Background()); ok {
		t.Fatalf("expected partial pair to be treated as absent")
	}
	if headers := accessor.Headers(context.Background()); headers.Get("Authorization") != "" {
		t.Fatalf("expected no authorization header for a partial pair")
	}
}

func TestCredentialAccessor_LoadErrorIsAbsence(t *testing.T) {
	accessor := NewCredentialAccessor(&loadOnlyStore{err: errors.New("disk gone")}, nil)
	if _, ok := accessor.Pair(context.Background()); ok {
		t.Fatalf("expected load failure to read as absence")
	}
}
