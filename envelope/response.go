package envelope

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-admin-client/core"
	"github.com/tidwall/gjson"
)

// Transform maps a successful response body onto the uniform envelope.
// Bodies carrying error or detail become failures; a data field is
// unwrapped, otherwise the whole body is the payload. Empty and malformed
// bodies are an implicit success with no data.
func Transform(raw []byte) core.Envelope {
	body := ParseBody(raw)
	if body.Kind != BodyParsed {
		return core.Succeeded(nil, "")
	}
	value := body.Value
	if !value.IsObject() {
		return core.Succeeded(rawData(value), "")
	}

	if carriesFailure(value) {
		return Failure(parseErrorObject(value, ""), 0)
	}

	message := ""
	if m := value.Get("message"); m.Type == gjson.String {
		message = strings.TrimSpace(m.String())
	}
	if data := value.Get("data"); data.Exists() {
		return core.Succeeded(rawData(data), message)
	}
	return core.Succeeded(rawData(value), message)
}

// Failure builds a failure envelope from a normalized error.
func Failure(detail ErrorDetail, statusCode int) core.Envelope {
	env := core.Failed(detail.Error)
	env.Detail = detail.Detail
	if len(detail.Errors) > 0 {
		env.Errors = cloneErrors(detail.Errors)
	}
	env.StatusCode = statusCode
	return env
}

func carriesFailure(value gjson.Result) bool {
	if success := value.Get("success"); success.Exists() && success.Type == gjson.False {
		return true
	}
	for _, key := range []string{"error", "detail"} {
		if present(value.Get(key)) {
			return true
		}
	}
	return false
}

func present(value gjson.Result) bool {
	switch {
	case !value.Exists() || value.Type == gjson.Null:
		return false
	case value.Type == gjson.String:
		return strings.TrimSpace(value.String()) != ""
	case value.IsObject():
		return len(value.Map()) > 0
	case value.IsArray():
		return len(value.Array()) > 0
	case value.Type == gjson.False:
		return false
	default:
		return true
	}
}

func rawData(value gjson.Result) json.RawMessage {
	if !value.Exists() || value.Type == gjson.Null {
		return nil
	}
	return json.RawMessage(append([]byte(nil), value.Raw...))
}

func cloneErrors(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for key, values := range in {
		out[key] = append([]string(nil), values...)
	}
	return out
}
