package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-admin-client/core"
	"github.com/golang-jwt/jwt/v5"
)

type redirectCounter struct {
	calls atomic.Int32
	path  atomic.Value
}

func (r *redirectCounter) RedirectToLogin(_ context.Context, loginPath string) error {
	r.calls.Add(1)
	r.path.Store(loginPath)
	return nil
}

type loadOnlyStore struct {
	pair  core.CredentialPair
	err   error
	loads atomic.Int32
}

func (s *loadOnlyStore) Load(context.Context) (core.CredentialPair, error) {
	s.loads.Add(1)
	return s.pair, s.err
}

func (s *loadOnlyStore) SetTokens(_ context.Context, access string, refresh string) error {
	s.pair = core.CredentialPair{AccessToken: access, RefreshToken: refresh}
	return nil
}

func (s *loadOnlyStore) Logout(context.Context) error {
	s.pair = core.CredentialPair{}
	return nil
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
