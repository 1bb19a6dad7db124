package query

import (
	"github.com/goliatone/go-admin-client/client"
	"github.com/goliatone/go-admin-client/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[FetchMessage, core.Envelope]     = (*FetchQuery)(nil)
	_ gocmd.Querier[FetchPageMessage, core.Envelope] = (*FetchPageQuery)(nil)
	_ Reader                                         = (*client.Client)(nil)
)
