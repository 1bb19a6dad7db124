package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialPair is the access/refresh token pair owned by the credential store.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

// Complete reports whether both tokens are present. A partial pair is
// treated as absent everywhere in the client.
func (p CredentialPair) Complete() bool {
	return strings.TrimSpace(p.AccessToken) != "" && strings.TrimSpace(p.RefreshToken) != ""
}

// CredentialStore is the external credential collaborator.
type CredentialStore interface {
	Load(ctx context.Context) (CredentialPair, error)
	SetTokens(ctx context.Context, accessToken string, refreshToken string) error
	Logout(ctx context.Context) error
}

// CredentialSnapshotter exposes a non-blocking read of the last known pair.
type CredentialSnapshotter interface {
	Snapshot() (CredentialPair, bool)
}

// CredentialObservable notifies listeners when the stored pair changes.
type CredentialObservable interface {
	Subscribe(listener func(CredentialPair)) (unsubscribe func())
}

// Redirector performs the out-of-band navigation to the login boundary.
type Redirector interface {
	RedirectToLogin(ctx context.Context, loginPath string) error
}

type NopRedirector struct{}

func (NopRedirector) RedirectToLogin(context.Context, string) error { return nil }

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, loginPath string) error

func (f RedirectFunc) RedirectToLogin(ctx context.Context, loginPath string) error {
	if f == nil {
		return nil
	}
	return f(ctx, loginPath)
}

// Upload describes a multipart/form-data file upload.
type Upload struct {
	FieldName   string
	FileName    string
	ContentType string
	Reader      io.Reader
	Fields      map[string]string
}

// RequestDescriptor is the immutable per-call request description.
type RequestDescriptor struct {
	Method     string
	Path       string
	Query      map[string]string
	Body       any
	Headers    map[string]string
	Timeout    time.Duration
	RetryOn401 *bool
	Upload     *Upload
}

// ShouldRetryOn401 defaults to true when unset.
func (d RequestDescriptor) ShouldRetryOn401() bool {
	if d.RetryOn401 == nil {
		return true
	}
	return *d.RetryOn401
}

// WithoutRetry returns a copy of the descriptor with 401 recovery disabled.
func (d RequestDescriptor) WithoutRetry() RequestDescriptor {
	disabled := false
	out := d
	out.RetryOn401 = &disabled
	return out
}

// Envelope is the only response shape callers ever see.
type Envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	Message    string              `json:"message,omitempty"`
	Detail     string              `json:"detail,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	StatusCode int                 `json:"status_code,omitempty"`
}

// Succeeded builds a success envelope.
func Succeeded(data json.RawMessage, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// Failed builds a failure envelope; an empty message falls back to a
// generic text so the envelope invariant holds.
func Failed(message string) Envelope {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "Request failed"
	}
	return Envelope{Success: false, Error: message}
}

// DecodeData decodes the envelope payload into T.
func DecodeData[T any](env Envelope) (T, error) {
	var out T
	if !env.Success {
		return out, fmt.Errorf("core: envelope is not successful: %s", env.Error)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("core: decode envelope data: %w", err)
	}
	return out, nil
}

// Pagination is the canonical pagination block.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is the canonical paginated payload.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string][]string
	Query                map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type TransportResolver interface {
	Resolve(kind string) (TransportAdapter, error)
}

// RateLimitKey identifies a throttling bucket.
type RateLimitKey struct {
	Host      string
	BucketKey string
}

// ResponseMeta is the subset of a response a rate limit policy inspects.
type ResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	Metadata   map[string]any
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
