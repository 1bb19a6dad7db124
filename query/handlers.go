// Package query exposes admin backend reads as go-command queriers. Backend
// failures stay inside the returned envelope; errors are reserved for
// invalid messages and missing wiring.
package query

import (
	"context"

	"github.com/goliatone/go-admin-client/client"
	"github.com/goliatone/go-admin-client/core"
)

// Reader is implemented by *client.Client.
type Reader interface {
	Get(ctx context.Context, path string, opts ...client.RequestOption) core.Envelope
	GetPaginated(ctx context.Context, path string, page int, limit int, opts ...client.RequestOption) core.Envelope
}

type FetchQuery struct {
	reader Reader
}

func NewFetchQuery(reader Reader) *FetchQuery {
	return &FetchQuery{reader: reader}
}

func (q *FetchQuery) Query(ctx context.Context, msg FetchMessage) (core.Envelope, error) {
	if q == nil || q.reader == nil {
		return core.Envelope{}, queryDependencyError("query: admin reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Envelope{}, err
	}
	return q.reader.Get(ctx, msg.Path, client.WithQueryValues(msg.Query)), nil
}

type FetchPageQuery struct {
	reader Reader
}

func NewFetchPageQuery(reader Reader) *FetchPageQuery {
	return &FetchPageQuery{reader: reader}
}

func (q *FetchPageQuery) Query(ctx context.Context, msg FetchPageMessage) (core.Envelope, error) {
	if q == nil || q.reader == nil {
		return core.Envelope{}, queryDependencyError("query: admin reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Envelope{}, err
	}
	return q.reader.GetPaginated(ctx, msg.Path, msg.Page, msg.Limit, client.WithQueryValues(msg.Query)), nil
}
