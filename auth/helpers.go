package auth

import (
	"strings"

	"github.com/tidwall/gjson"
)

// firstString returns the first non-empty string value among keys.
func firstString(value gjson.Result, keys ...string) string {
	for _, key := range keys {
		field := value.Get(key)
		if field.Type != gjson.String {
			continue
		}
		if trimmed := strings.TrimSpace(field.String()); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// tokenResponse extracts the token pair from a refresh body, which may be
// wrapped in a data object.
func tokenResponse(raw []byte) (access string, refresh string) {
	root := gjson.ParseBytes(raw)
	candidates := []gjson.Result{root}
	if data := root.Get("data"); data.IsObject() {
		candidates = append([]gjson.Result{data}, candidates...)
	}
	for _, candidate := range candidates {
		if access == "" {
			access = firstString(candidate, "access", "access_token")
		}
		if refresh == "" {
			refresh = firstString(candidate, "refresh", "refresh_token")
		}
	}
	return access, refresh
}
