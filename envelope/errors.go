package envelope

import (
	"net/http"
	"sort"
	"strings"
	"unicode"

	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	UniqueCombinationMessage = "A record with this combination of values already exists. Please choose a different combination."
	RequiredFieldMessage     = "This field is required."
	DefaultErrorMessage      = "Request failed"

	uniqueSetPhrase   = "must make a unique set"
	blankFieldPhrase  = "This field may not be blank."
	maxPlainTextBytes = 2048
)

var nonFieldKeys = map[string]struct{}{
	"non_field_errors": {},
	"__all__":          {},
}

var reservedKeys = map[string]struct{}{
	"error":   {},
	"message": {},
	"detail":  {},
}

var titleCaser = cases.Title(language.English)

// ErrorDetail is the normalized form of a failed response body.
type ErrorDetail struct {
	Error  string
	Detail string
	Errors map[string][]string
}

// ParseError flattens a failed response body into one readable message.
// status is the transport status line used when the body carries nothing
// usable. Re-parsing the returned Error yields the same Error.
func ParseError(raw []byte, status string) ErrorDetail {
	body := ParseBody(raw)
	switch body.Kind {
	case BodyEmpty:
		return ErrorDetail{Error: statusFallback(status)}
	case BodyMalformed:
		return ErrorDetail{Error: plainTextMessage(string(body.Raw), status)}
	}
	return parseErrorValue(body.Value, string(body.Raw), status)
}

func parseErrorValue(value gjson.Result, raw string, status string) ErrorDetail {
	switch {
	case value.Type == gjson.String:
		if message := strings.TrimSpace(value.String()); message != "" {
			return ErrorDetail{Error: rewriteMessage(message)}
		}
		return ErrorDetail{Error: statusFallback(status)}
	case value.IsArray():
		messages := stringElements(value)
		if len(messages) == 0 {
			return ErrorDetail{Error: statusFallback(status)}
		}
		return ErrorDetail{Error: flattenFieldErrors(map[string][]string{"non_field_errors": messages})}
	case value.IsObject():
		return parseErrorObject(value, status)
	default:
		return ErrorDetail{Error: plainTextMessage(raw, status)}
	}
}

func parseErrorObject(value gjson.Result, status string) ErrorDetail {
	detail := ErrorDetail{}
	if d := value.Get("detail"); d.Type == gjson.String {
		detail.Detail = strings.TrimSpace(d.String())
	}

	if fields, ok := detectFieldErrors(value); ok {
		detail.Errors = fields
		detail.Error = flattenFieldErrors(fields)
		return detail
	}
	if list := value.Get("errors"); list.IsArray() {
		if messages := stringElements(list); len(messages) > 0 {
			detail.Errors = map[string][]string{"non_field_errors": messages}
			detail.Error = flattenFieldErrors(detail.Errors)
			return detail
		}
	}

	for _, key := range []string{"error", "message", "detail"} {
		candidate := value.Get(key)
		if candidate.Type != gjson.String {
			continue
		}
		if message := strings.TrimSpace(candidate.String()); message != "" {
			detail.Error = rewriteMessage(message)
			return detail
		}
	}
	detail.Error = statusFallback(status)
	return detail
}

// detectFieldErrors looks for a field -> messages map nested under errors
// or error, or at the top level. A body with its own error, message or
// detail text is never read as a top level field map, so sibling keys such
// as code or status do not shadow that text.
func detectFieldErrors(value gjson.Result) (map[string][]string, bool) {
	for _, key := range []string{"errors", "error"} {
		nested := value.Get(key)
		if !nested.IsObject() {
			continue
		}
		if fields, ok := fieldMap(nested, false); ok {
			return fields, true
		}
	}
	if hasMessageText(value) {
		return nil, false
	}
	return fieldMap(value, true)
}

func hasMessageText(value gjson.Result) bool {
	for key := range reservedKeys {
		candidate := value.Get(key)
		if candidate.Type == gjson.String && strings.TrimSpace(candidate.String()) != "" {
			return true
		}
	}
	return false
}

func fieldMap(value gjson.Result, skipReserved bool) (map[string][]string, bool) {
	fields := map[string][]string{}
	valid := true
	value.ForEach(func(key, item gjson.Result) bool {
		name := key.String()
		if skipReserved {
			if _, reserved := reservedKeys[name]; reserved {
				return true
			}
		}
		switch {
		case item.Type == gjson.String:
			if message := strings.TrimSpace(item.String()); message != "" {
				fields[name] = append(fields[name], message)
			}
		case item.IsArray():
			for _, element := range item.Array() {
				if element.Type != gjson.String {
					valid = false
					return false
				}
				if message := strings.TrimSpace(element.String()); message != "" {
					fields[name] = append(fields[name], message)
				}
			}
		default:
			valid = false
			return false
		}
		return true
	})
	if !valid || len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

// flattenFieldErrors renders non field messages first, then fields in
// name order. Each part ends with a period and parts are space separated.
func flattenFieldErrors(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		_, iNonField := nonFieldKeys[names[i]]
		_, jNonField := nonFieldKeys[names[j]]
		if iNonField != jNonField {
			return iNonField
		}
		return names[i] < names[j]
	})

	parts := make([]string, 0, len(fields))
	for _, name := range names {
		_, nonField := nonFieldKeys[name]
		for _, message := range fields[name] {
			message = rewriteMessage(message)
			if message == "" {
				continue
			}
			if !nonField {
				message = TitleField(name) + ": " + message
			}
			parts = append(parts, terminate(message))
		}
	}
	if len(parts) == 0 {
		return DefaultErrorMessage
	}
	return strings.Join(parts, " ")
}

// TitleField turns a backend field name into a label: first_name and
// firstName both become "First Name".
func TitleField(name string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return titleCaser.String(strings.Join(words, " "))
}

// rewriteMessage replaces known backend phrasings. The replacements never
// contain their trigger, so applying it twice is a no-op.
func rewriteMessage(message string) string {
	message = strings.TrimSpace(message)
	if strings.Contains(strings.ToLower(message), uniqueSetPhrase) {
		return UniqueCombinationMessage
	}
	return strings.ReplaceAll(message, blankFieldPhrase, RequiredFieldMessage)
}

func terminate(message string) string {
	if strings.HasSuffix(message, ".") || strings.HasSuffix(message, "!") || strings.HasSuffix(message, "?") {
		return message
	}
	return message + "."
}

func stringElements(value gjson.Result) []string {
	var out []string
	for _, element := range value.Array() {
		if element.Type != gjson.String {
			continue
		}
		if message := strings.TrimSpace(element.String()); message != "" {
			out = append(out, message)
		}
	}
	return out
}

// plainTextMessage keeps short non-JSON bodies; markup pages and oversized
// payloads fall back to the status line.
func plainTextMessage(text string, status string) string {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxPlainTextBytes || strings.HasPrefix(text, "<") {
		return statusFallback(status)
	}
	return rewriteMessage(text)
}

func statusFallback(status string) string {
	if status = strings.TrimSpace(status); status != "" {
		return status
	}
	return DefaultErrorMessage
}

// ToValidationError converts a normalized failure into a go-errors
// validation error carrying one FieldError per message.
func ToValidationError(detail ErrorDetail) error {
	message := strings.TrimSpace(detail.Error)
	if message == "" {
		message = DefaultErrorMessage
	}
	if len(detail.Errors) == 0 {
		return core.NewError(message, goerrors.CategoryBadInput, nil)
	}
	names := make([]string, 0, len(detail.Errors))
	for name := range detail.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	fieldErrors := make([]goerrors.FieldError, 0, len(names))
	for _, name := range names {
		for _, fieldMessage := range detail.Errors[name] {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   name,
				Message: rewriteMessage(fieldMessage),
			})
		}
	}
	return goerrors.NewValidation(message, fieldErrors...).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ClientErrorBadInput)
}
