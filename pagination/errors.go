package pagination

import (
	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
)

var errUnknownShape = core.NewError("pagination: unrecognized response shape", goerrors.CategoryExternal, nil)
