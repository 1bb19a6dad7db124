// Package pagination recognizes the paginated body shapes the backend emits
// and converts them to core.Page.
package pagination

import (
	"github.com/tidwall/gjson"
)

type ShapeKind int

// Detection order follows the declaration order.
const (
	ShapeUnknown ShapeKind = iota
	ShapeCustom
	ShapeCountResults
	ShapeArray
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCustom:
		return "custom"
	case ShapeCountResults:
		return "count_results"
	case ShapeArray:
		return "array"
	default:
		return "unknown"
	}
}

// Shape is a detected paginated body. Items is the record array; Meta is
// the object holding the counters (the pagination block for ShapeCustom,
// the body itself for ShapeCountResults).
type Shape struct {
	Kind    ShapeKind
	Items   gjson.Result
	Meta    gjson.Result
	Message string
}

var (
	totalKeys      = []string{"total", "total_count", "totalCount", "count"}
	limitKeys      = []string{"limit", "page_size", "pageSize", "per_page", "perPage"}
	pageKeys       = []string{"page", "current_page", "currentPage"}
	totalPagesKeys = []string{"total_pages", "totalPages", "num_pages"}
)

// Detect classifies a parsed body. An object whose data field is itself a
// count/results or custom envelope is unwrapped once.
func Detect(value gjson.Result) Shape {
	shape := detect(value)
	if shape.Kind != ShapeUnknown || !value.IsObject() {
		return shape
	}
	inner := value.Get("data")
	if !inner.IsObject() {
		return shape
	}
	nested := detect(inner)
	if nested.Kind == ShapeCustom || nested.Kind == ShapeCountResults {
		if nested.Message == "" {
			nested.Message = messageOf(value)
		}
		return nested
	}
	return shape
}

func detect(value gjson.Result) Shape {
	switch {
	case value.IsArray():
		return Shape{Kind: ShapeArray, Items: value}
	case !value.IsObject():
		return Shape{Kind: ShapeUnknown}
	}
	data := value.Get("data")
	meta := value.Get("pagination")
	if data.IsArray() && meta.IsObject() {
		return Shape{Kind: ShapeCustom, Items: data, Meta: meta, Message: messageOf(value)}
	}
	results := value.Get("results")
	if value.Get("count").Exists() && results.IsArray() {
		return Shape{Kind: ShapeCountResults, Items: results, Meta: value, Message: messageOf(value)}
	}
	return Shape{Kind: ShapeUnknown}
}

func messageOf(value gjson.Result) string {
	if m := value.Get("message"); m.Type == gjson.String {
		return m.String()
	}
	return ""
}

func intField(value gjson.Result, keys []string) (int, bool) {
	if !value.IsObject() {
		return 0, false
	}
	for _, key := range keys {
		field := value.Get(key)
		if !field.Exists() || field.Type == gjson.Null {
			continue
		}
		return int(field.Int()), true
	}
	return 0, false
}
