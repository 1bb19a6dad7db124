package auth

import (
	"errors"

	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrNoRefreshToken  = errors.New("auth: no refresh token available")
	ErrRefreshRejected = errors.New("auth: refresh rejected by backend")
)

func refreshError(source error, message string, metadata map[string]any) error {
	return core.WrapError(source, goerrors.CategoryAuth, message, metadata).
		WithTextCode(core.ClientErrorRefreshFailed)
}

// IsTerminal reports whether err ends the session, as opposed to a caller
// giving up while the shared refresh continues.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrNoRefreshToken) || errors.Is(err, ErrRefreshRejected)
}
