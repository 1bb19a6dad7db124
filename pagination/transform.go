package pagination

import (
	"encoding/json"

	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/envelope"
)

const UnrecognizedShapeMessage = "Unexpected pagination response format"

// Transform converts a paginated body into an envelope whose Data is the
// canonical {"data":[...],"pagination":{...}} document. page and limit are
// the values the caller requested; they fill counters the body omits.
func Transform(raw []byte, page int, limit int) core.Envelope {
	body := envelope.ParseBody(raw)
	if body.Kind != envelope.BodyParsed {
		return core.Failed(UnrecognizedShapeMessage)
	}
	shape := Detect(body.Value)
	if shape.Kind == ShapeUnknown {
		if env := envelope.Transform(raw); !env.Success {
			return env
		}
		return core.Failed(UnrecognizedShapeMessage)
	}

	result, err := Resolve(shape, page, limit)
	if err != nil {
		return core.Failed(UnrecognizedShapeMessage)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return core.Failed(UnrecognizedShapeMessage)
	}
	return core.Succeeded(encoded, shape.Message)
}

// Resolve builds the canonical page for a detected shape.
func Resolve(shape Shape, page int, limit int) (core.Page[json.RawMessage], error) {
	items := make([]json.RawMessage, 0)
	for _, item := range shape.Items.Array() {
		items = append(items, json.RawMessage(item.Raw))
	}

	out := core.Page[json.RawMessage]{Data: items}
	total := len(items)
	resolvedPage := page
	resolvedLimit := limit
	totalPages := -1

	switch shape.Kind {
	case ShapeCustom:
		if v, ok := intField(shape.Meta, totalKeys); ok {
			total = v
		}
		if v, ok := intField(shape.Meta, limitKeys); ok {
			resolvedLimit = v
		}
		if v, ok := intField(shape.Meta, pageKeys); ok {
			resolvedPage = v
		}
		if v, ok := intField(shape.Meta, totalPagesKeys); ok {
			totalPages = v
		}
	case ShapeCountResults:
		if v, ok := intField(shape.Meta, []string{"count"}); ok {
			total = v
		}
	case ShapeArray:
	default:
		return out, errUnknownShape
	}

	if resolvedPage <= 0 {
		resolvedPage = 1
	}
	if resolvedLimit <= 0 {
		resolvedLimit = len(items)
	}
	if totalPages < 0 {
		totalPages = TotalPages(total, resolvedLimit)
	}
	out.Pagination = core.Pagination{
		Page:       resolvedPage,
		Limit:      resolvedLimit,
		Total:      total,
		TotalPages: totalPages,
	}
	return out, nil
}

// TotalPages is ceil(total/limit). A non-positive limit yields 0 pages for
// an empty result and 1 otherwise.
func TotalPages(total int, limit int) int {
	if total <= 0 {
		return 0
	}
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// Decode returns the typed page carried by a paginated envelope.
func Decode[T any](env core.Envelope) (core.Page[T], error) {
	return core.DecodeData[core.Page[T]](env)
}
