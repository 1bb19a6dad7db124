package transport

import (
	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
)

func transportError(message string, category goerrors.Category, metadata map[string]any) error {
	return core.NewError(message, category, metadata)
}

func transportWrapError(source error, category goerrors.Category, message string, metadata map[string]any) error {
	return core.WrapError(source, category, message, metadata)
}

// IsTimeout reports whether err came from an exceeded request deadline.
func IsTimeout(err error) bool {
	return core.HasTextCode(err, core.ClientErrorTimeout)
}

// IsCancelled reports whether err came from a cancelled caller context.
func IsCancelled(err error) bool {
	return core.HasTextCode(err, core.ClientErrorCancelled)
}
