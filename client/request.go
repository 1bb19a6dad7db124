package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-admin-client/auth"
	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/envelope"
	"github.com/goliatone/go-admin-client/pagination"
	"github.com/goliatone/go-admin-client/ratelimit"
	"github.com/goliatone/go-admin-client/transport"
	goerrors "github.com/goliatone/go-errors"
)

const MessageInvalidBody = "Invalid request body."

// decodeFunc turns a 2xx body into the caller facing envelope.
type decodeFunc func(raw []byte) core.Envelope

// preparedRequest is the encoded, reusable part of a descriptor. Upload
// readers are drained once so a retry sends the same bytes.
type preparedRequest struct {
	method      string
	url         string
	query       map[string]string
	body        []byte
	contentType string
	adapter     core.TransportAdapter
	limitKey    core.RateLimitKey
}

// Request executes desc and always returns an envelope.
func (c *Client) Request(ctx context.Context, desc core.RequestDescriptor) core.Envelope {
	return c.execute(ctx, desc, decodeEnvelope)
}

func (c *Client) execute(ctx context.Context, desc core.RequestDescriptor, decode decodeFunc) core.Envelope {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	trace := newCallTrace()

	env := c.run(ctx, desc, decode, trace)
	if env.Success {
		trace.transition(StateSuccess)
	} else {
		trace.transition(StateFailed)
	}

	fields := map[string]any{
		"method": strings.ToUpper(strings.TrimSpace(desc.Method)),
		"path":   desc.Path,
		"states": trace.String(),
	}
	if env.StatusCode > 0 {
		fields["status_code"] = env.StatusCode
	}
	if !env.Success {
		fields["error"] = env.Error
	}
	c.observer.ObserveOperation(ctx, startedAt, "request", string(trace.Current()), fields)
	return env
}

func (c *Client) run(ctx context.Context, desc core.RequestDescriptor, decode decodeFunc, trace *callTrace) core.Envelope {
	prepared, env, ok := c.prepare(desc)
	if !ok {
		return env
	}

	token := c.accessor.AccessToken(ctx)
	response, env, ok := c.send(ctx, desc, prepared, token)
	if !ok {
		return env
	}

	if response.StatusCode == http.StatusUnauthorized && desc.ShouldRetryOn401() {
		trace.transition(StateRetrying)
		refreshed, err := c.coordinator.RefreshFrom(ctx, token)
		if err != nil {
			if auth.IsTerminal(err) {
				return terminalAuthFailure()
			}
			return failureForError(ctx, err)
		}

		retry := desc.WithoutRetry()
		response, env, ok = c.send(ctx, retry, prepared, refreshed)
		if !ok {
			return env
		}
		if response.StatusCode == http.StatusUnauthorized {
			c.coordinator.ForceLogout(ctx, "unauthorized after refresh")
			return terminalAuthFailure()
		}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		detail := envelope.ParseError(response.Body, response.Status)
		return envelope.Failure(detail, response.StatusCode)
	}
	env = decode(response.Body)
	env.StatusCode = response.StatusCode
	return env
}

func (c *Client) prepare(desc core.RequestDescriptor) (preparedRequest, core.Envelope, bool) {
	method := strings.ToUpper(strings.TrimSpace(desc.Method))
	if method == "" {
		method = http.MethodGet
	}
	prepared := preparedRequest{
		method:      method,
		url:         c.config.ResolveURL(desc.Path),
		query:       cloneQuery(desc.Query),
		contentType: "application/json",
		adapter:     c.rest,
	}
	prepared.limitKey = rateLimitKey(method, prepared.url)

	if desc.Upload != nil {
		body, contentType, err := transport.EncodeMultipart(*desc.Upload)
		if err != nil {
			return prepared, invalidBody(err), false
		}
		prepared.body = body
		prepared.contentType = contentType
		prepared.adapter = c.upload
		return prepared, core.Envelope{}, true
	}

	body, err := encodeBody(desc.Body)
	if err != nil {
		return prepared, invalidBody(err), false
	}
	prepared.body = body
	return prepared, core.Envelope{}, true
}

// send performs one round trip with token as the auth layer. ok is false
// when the call ended before a response was received.
func (c *Client) send(ctx context.Context, desc core.RequestDescriptor, prepared preparedRequest, token string) (core.TransportResponse, core.Envelope, bool) {
	if c.rateLimitPolicy != nil {
		if err := c.rateLimitPolicy.BeforeCall(ctx, prepared.limitKey); err != nil {
			var throttled ratelimit.ThrottledError
			if errors.As(err, &throttled) {
				return core.TransportResponse{}, rateLimitFailure(throttled), false
			}
			c.observer.Log(ctx, "debug", "rate limit state unavailable", map[string]any{"error": err.Error()})
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// the limiter refuses waits that would overrun the deadline
			return core.TransportResponse{}, core.Failed(core.MessageTimeout), false
		}
		return core.TransportResponse{}, failureForError(ctx, err), false
	}

	defaults := http.Header{
		"Content-Type": {prepared.contentType},
		"Accept":       {"application/json"},
	}
	authLayer := http.Header{}
	if token != "" {
		authLayer.Set("Authorization", auth.BearerValue(token))
	}
	headers := transport.MergeHeaders(defaults, authLayer, callerHeaders(desc.Headers))

	response, err := prepared.adapter.Do(ctx, core.TransportRequest{
		Method:               prepared.method,
		URL:                  prepared.url,
		Headers:              headers,
		Query:                prepared.query,
		Body:                 prepared.body,
		Timeout:              requestTimeout(desc, c.config),
		MaxResponseBodyBytes: c.config.MaxResponseBodyBytes,
	})
	if err != nil {
		return core.TransportResponse{}, failureForError(ctx, err), false
	}

	if c.rateLimitPolicy != nil {
		if err := c.rateLimitPolicy.AfterCall(ctx, prepared.limitKey, core.ResponseMeta{
			StatusCode: response.StatusCode,
			Headers:    response.Headers,
			Metadata:   response.Metadata,
		}); err != nil {
			c.observer.Log(ctx, "debug", "rate limit bookkeeping failed", map[string]any{"error": err.Error()})
		}
	}
	return response, core.Envelope{}, true
}

func decodeEnvelope(raw []byte) core.Envelope {
	return envelope.Transform(raw)
}

// decodePage treats an empty or malformed 2xx body as an empty page.
func decodePage(raw []byte, page int, limit int) core.Envelope {
	if envelope.ParseBody(raw).Kind != envelope.BodyParsed {
		raw = []byte("[]")
	}
	return pagination.Transform(raw, page, limit)
}

// failureForError maps transport and context errors onto user messages.
func failureForError(ctx context.Context, err error) core.Envelope {
	ctxErr := ctx.Err()
	switch {
	case transport.IsTimeout(err), errors.Is(err, context.DeadlineExceeded), errors.Is(ctxErr, context.DeadlineExceeded):
		return core.Failed(core.MessageTimeout)
	case transport.IsCancelled(err), errors.Is(err, context.Canceled), errors.Is(ctxErr, context.Canceled):
		return core.Failed(core.MessageCancelled)
	default:
		return core.Failed(core.MessageNetwork)
	}
}

func terminalAuthFailure() core.Envelope {
	env := core.Failed(core.MessageAuthTerminal)
	env.StatusCode = http.StatusUnauthorized
	return env
}

func rateLimitFailure(throttled ratelimit.ThrottledError) core.Envelope {
	env := core.Failed(core.MessageRateLimited)
	env.StatusCode = http.StatusTooManyRequests
	if throttled.RetryAfter > 0 {
		env.Detail = "Retry after " + throttled.RetryAfter.Round(time.Second).String() + "."
	}
	return env
}

func invalidBody(err error) core.Envelope {
	env := core.Failed(MessageInvalidBody)
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		env.Detail = rich.Message
	} else if err != nil {
		env.Detail = err.Error()
	}
	return env
}

// encodeBody sends bytes and raw JSON as is, drains readers and marshals
// anything else as JSON.
func encodeBody(body any) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case json.RawMessage:
		return value, nil
	case io.Reader:
		return io.ReadAll(value)
	default:
		return json.Marshal(value)
	}
}

func callerHeaders(headers map[string]string) http.Header {
	out := http.Header{}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out.Set(key, value)
	}
	return out
}

func cloneQuery(query map[string]string) map[string]string {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string]string, len(query))
	for key, value := range query {
		out[key] = value
	}
	return out
}

func rateLimitKey(method string, rawURL string) core.RateLimitKey {
	key := core.RateLimitKey{BucketKey: method + " " + rawURL}
	if parsed, err := url.Parse(rawURL); err == nil {
		key.Host = parsed.Host
		key.BucketKey = method + " " + parsed.Path
	}
	return ratelimit.NormalizeKey(key)
}

// pageQuery adds the requested page and limit unless the caller set them.
func pageQuery(query map[string]string, page int, limit int) map[string]string {
	out := cloneQuery(query)
	if out == nil {
		out = map[string]string{}
	}
	if _, ok := out["page"]; !ok && page > 0 {
		out["page"] = strconv.Itoa(page)
	}
	if _, ok := out["limit"]; !ok && limit > 0 {
		out["limit"] = strconv.Itoa(limit)
	}
	return out
}
