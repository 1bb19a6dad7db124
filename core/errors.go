package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorBadInput        = "ADMIN_CLIENT_BAD_INPUT"
	ClientErrorUnauthorized    = "ADMIN_CLIENT_UNAUTHORIZED"
	ClientErrorForbidden       = "ADMIN_CLIENT_FORBIDDEN"
	ClientErrorNotFound        = "ADMIN_CLIENT_NOT_FOUND"
	ClientErrorTimeout         = "ADMIN_CLIENT_TIMEOUT"
	ClientErrorCancelled       = "ADMIN_CLIENT_CANCELLED"
	ClientErrorRateLimited     = "ADMIN_CLIENT_RATE_LIMITED"
	ClientErrorExternalFailure = "ADMIN_CLIENT_EXTERNAL_FAILURE"
	ClientErrorRefreshFailed   = "ADMIN_CLIENT_REFRESH_FAILED"
	ClientErrorInternal        = "ADMIN_CLIENT_INTERNAL_ERROR"
)

// User facing messages shared by the executor and the coordinator.
const (
	MessageTimeout      = "Request timeout. Please check your connection and try again."
	MessageCancelled    = "Request cancelled."
	MessageNetwork      = "Network error. Please check your connection and try again."
	MessageAuthTerminal = "Authentication failed. Please login again."
	MessageRateLimited  = "Too many requests. Please wait a moment and try again."
)

// NewError builds a go-errors envelope with a category derived code and text code.
func NewError(message string, category goerrors.Category, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(HTTPStatusForCategory(category)).
		WithTextCode(TextCodeForCategory(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError wraps source into a go-errors envelope, classifying context
// errors as timeout/cancellation regardless of the requested category.
func WrapError(source error, category goerrors.Category, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewError(message, category, metadata)
	}
	textCode := TextCodeForCategory(category)
	switch {
	case errors.Is(source, context.DeadlineExceeded):
		textCode = ClientErrorTimeout
	case errors.Is(source, context.Canceled):
		textCode = ClientErrorCancelled
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(HTTPStatusForCategory(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// HasTextCode reports whether err is a go-errors envelope carrying code.
func HasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(rich.TextCode), code)
}

func TextCodeForCategory(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadInput
	case goerrors.CategoryAuth:
		return ClientErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ClientErrorForbidden
	case goerrors.CategoryNotFound:
		return ClientErrorNotFound
	case goerrors.CategoryRateLimit:
		return ClientErrorRateLimited
	case goerrors.CategoryExternal:
		return ClientErrorExternalFailure
	default:
		return ClientErrorInternal
	}
}

func HTTPStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return NewError(err.Error(), goerrors.CategoryBadInput, nil)
	case strings.Contains(msg, "refresh"):
		return NewError(err.Error(), goerrors.CategoryAuth, nil).WithTextCode(ClientErrorRefreshFailed)
	}
	return ensureErrorEnvelope(goerrors.MapToError(err, goerrors.DefaultErrorMappers()))
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = TextCodeForCategory(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}
