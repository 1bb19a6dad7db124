package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-admin-client/core"
)

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) core.Envelope {
	return c.Request(ctx, describe(http.MethodGet, path, nil, opts))
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) core.Envelope {
	return c.Request(ctx, describe(http.MethodPost, path, body, opts))
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) core.Envelope {
	return c.Request(ctx, describe(http.MethodPut, path, body, opts))
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) core.Envelope {
	return c.Request(ctx, describe(http.MethodPatch, path, body, opts))
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) core.Envelope {
	return c.Request(ctx, describe(http.MethodDelete, path, nil, opts))
}

// Upload posts a multipart/form-data body built from upload.
func (c *Client) Upload(ctx context.Context, path string, upload core.Upload, opts ...RequestOption) core.Envelope {
	desc := describe(http.MethodPost, path, nil, opts)
	desc.Upload = &upload
	return c.Request(ctx, desc)
}

// GetPaginated fetches one page and normalizes whichever pagination shape
// the backend used. The envelope Data holds a core.Page document.
func (c *Client) GetPaginated(ctx context.Context, path string, page int, limit int, opts ...RequestOption) core.Envelope {
	desc := describe(http.MethodGet, path, nil, opts)
	desc.Query = pageQuery(desc.Query, page, limit)
	return c.execute(ctx, desc, func(raw []byte) core.Envelope {
		return decodePage(raw, page, limit)
	})
}

func describe(method string, path string, body any, opts []RequestOption) core.RequestDescriptor {
	desc := core.RequestDescriptor{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		if opt != nil {
			opt(&desc)
		}
	}
	return desc
}
