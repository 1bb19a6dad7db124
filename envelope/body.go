package envelope

import (
	"bytes"

	"github.com/tidwall/gjson"
)

type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyParsed
	BodyMalformed
)

func (k BodyKind) String() string {
	switch k {
	case BodyEmpty:
		return "empty"
	case BodyParsed:
		return "parsed"
	case BodyMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Body is the classified form of a response payload.
type Body struct {
	Kind  BodyKind
	Raw   []byte
	Value gjson.Result
}

// ParseBody classifies raw without failing. Whitespace only bodies are empty.
func ParseBody(raw []byte) Body {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Body{Kind: BodyEmpty}
	}
	if !gjson.ValidBytes(trimmed) {
		return Body{Kind: BodyMalformed, Raw: trimmed}
	}
	return Body{Kind: BodyParsed, Raw: trimmed, Value: gjson.ParseBytes(trimmed)}
}
