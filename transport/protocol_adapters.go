package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"

	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
)

const KindUpload = "upload"

// ProtocolHTTPAdapter is a REST adapter with its own kind, default method and
// default headers.
type ProtocolHTTPAdapter struct {
	kind          string
	defaultMethod string
	defaultHeader http.Header
	rest          *RESTAdapter
}

// NewUploadAdapter builds the multipart upload adapter. The multipart
// content type (with boundary) comes from the request headers.
func NewUploadAdapter(client HTTPDoer) *ProtocolHTTPAdapter {
	return newProtocolHTTPAdapter(KindUpload, client, http.MethodPost, http.Header{
		"Accept": {"application/json"},
	})
}

func newProtocolHTTPAdapter(kind string, client HTTPDoer, defaultMethod string, defaultHeaders http.Header) *ProtocolHTTPAdapter {
	return &ProtocolHTTPAdapter{
		kind:          strings.TrimSpace(strings.ToLower(kind)),
		defaultMethod: strings.TrimSpace(strings.ToUpper(defaultMethod)),
		defaultHeader: MergeHeaders(defaultHeaders),
		rest:          NewRESTAdapter(client),
	}
}

func (a *ProtocolHTTPAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *ProtocolHTTPAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.rest == nil {
		return core.TransportResponse{}, transportError(
			"transport: protocol adapter is nil",
			goerrors.CategoryInternal,
			nil,
		)
	}
	resolved := req
	if strings.TrimSpace(resolved.Method) == "" {
		resolved.Method = a.defaultMethod
	}
	resolved.Headers = MergeHeaders(a.defaultHeader, req.Headers)
	response, err := a.rest.Do(ctx, resolved)
	if err != nil {
		return core.TransportResponse{}, err
	}
	response.Metadata = cloneMetadata(response.Metadata)
	response.Metadata["kind"] = a.kind
	return response, nil
}

// EncodeMultipart renders upload into a multipart/form-data body and returns
// it with the matching Content-Type header value.
func EncodeMultipart(upload core.Upload) ([]byte, string, error) {
	if upload.Reader == nil {
		return nil, "", transportError("transport: upload reader is required", goerrors.CategoryBadInput, nil)
	}
	fieldName := strings.TrimSpace(upload.FieldName)
	if fieldName == "" {
		fieldName = "file"
	}
	fileName := strings.TrimSpace(upload.FileName)
	if fileName == "" {
		fileName = "upload"
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	keys := make([]string, 0, len(upload.Fields))
	for key := range upload.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, upload.Fields[key]); err != nil {
			return nil, "", transportWrapError(err, goerrors.CategoryBadInput, "transport: write multipart field", map[string]any{"field": key})
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", transportWrapError(err, goerrors.CategoryBadInput, "transport: create multipart part", nil)
	}
	if _, err := io.Copy(part, upload.Reader); err != nil {
		return nil, "", transportWrapError(err, goerrors.CategoryBadInput, "transport: copy upload content", nil)
	}
	if err := writer.Close(); err != nil {
		return nil, "", transportWrapError(err, goerrors.CategoryBadInput, "transport: close multipart writer", nil)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func cloneMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

var _ core.TransportAdapter = (*ProtocolHTTPAdapter)(nil)
