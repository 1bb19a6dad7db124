package pagination

import (
	"testing"

	"github.com/goliatone/go-admin-client/core"
	"github.com/tidwall/gjson"
)

type product struct {
	ID int `json:"id"`
}

func TestTransform_CustomEnvelopeSnakeCase(t *testing.T) {
	raw := `{"data":[{"id":1},{"id":2}],"pagination":{"page":1,"page_size":20,"total_count":57}}`
	env := Transform([]byte(raw), 1, 10)
	if !env.Success {
		t.Fatalf("expected success, got %#v", env)
	}
	page, err := Decode[product](env)
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	want := core.Pagination{Page: 1, Limit: 20, Total: 57, TotalPages: 3}
	if page.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, page.Pagination)
	}
	if len(page.Data) != 2 || page.Data[1].ID != 2 {
		t.Fatalf("unexpected data %+v", page.Data)
	}
}

func TestTransform_CustomEnvelopeCamelCase(t *testing.T) {
	raw := `{"message":"ok","data":[],"pagination":{"currentPage":3,"perPage":5,"totalCount":11,"totalPages":3}}`
	env := Transform([]byte(raw), 1, 10)
	page, err := Decode[product](env)
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	want := core.Pagination{Page: 3, Limit: 5, Total: 11, TotalPages: 3}
	if page.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, page.Pagination)
	}
	if page.Data == nil {
		t.Fatalf("expected empty data slice, not nil")
	}
	if env.Message != "ok" {
		t.Fatalf("expected message to be carried, got %q", env.Message)
	}
}

func TestTransform_CustomEnvelopeFallsBackToRequested(t *testing.T) {
	raw := `{"data":[{"id":1}],"pagination":{"total":40}}`
	page, err := Decode[product](Transform([]byte(raw), 2, 15))
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	want := core.Pagination{Page: 2, Limit: 15, Total: 40, TotalPages: 3}
	if page.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, page.Pagination)
	}
}

func TestTransform_CountResults(t *testing.T) {
	raw := `{"count":12,"next":"http://x/?page=2","previous":null,"results":[{"id":1},{"id":2},{"id":3},{"id":4},{"id":5},{"id":6},{"id":7},{"id":8},{"id":9},{"id":10}]}`
	page, err := Decode[product](Transform([]byte(raw), 1, 10))
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	want := core.Pagination{Page: 1, Limit: 10, Total: 12, TotalPages: 2}
	if page.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, page.Pagination)
	}
	if len(page.Data) != 10 {
		t.Fatalf("expected 10 records, got %d", len(page.Data))
	}
}

func TestTransform_WrappedCountResults(t *testing.T) {
	raw := `{"message":"Loaded","data":{"count":3,"results":[{"id":1}]}}`
	env := Transform([]byte(raw), 1, 1)
	page, err := Decode[product](env)
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
	if env.Message != "Loaded" {
		t.Fatalf("expected outer message, got %q", env.Message)
	}
}

func TestTransform_BareArray(t *testing.T) {
	page, err := Decode[product](Transform([]byte(`[{"id":1},{"id":2},{"id":3}]`), 0, 0))
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	want := core.Pagination{Page: 1, Limit: 3, Total: 3, TotalPages: 1}
	if page.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, page.Pagination)
	}
}

func TestTransform_EmptyBareArrayHasZeroPages(t *testing.T) {
	page, err := Decode[product](Transform([]byte(`[]`), 0, 0))
	if err != nil {
		t.Fatalf("decode page: %v", err)
	}
	want := core.Pagination{Page: 1, Limit: 0, Total: 0, TotalPages: 0}
	if page.Pagination != want {
		t.Fatalf("expected %+v, got %+v", want, page.Pagination)
	}
}

func TestTransform_UnknownShapeIsFailure(t *testing.T) {
	for _, raw := range []string{`{"items":[1,2]}`, `"text"`, ``, `not json`} {
		env := Transform([]byte(raw), 1, 10)
		if env.Success {
			t.Fatalf("expected failure for %q", raw)
		}
		if env.Error != UnrecognizedShapeMessage {
			t.Fatalf("unexpected error %q for %q", env.Error, raw)
		}
	}
}

func TestTransform_ErrorBodyKeepsBackendMessage(t *testing.T) {
	env := Transform([]byte(`{"error":"Catalog disabled"}`), 1, 10)
	if env.Success || env.Error != "Catalog disabled" {
		t.Fatalf("expected backend error, got %#v", env)
	}
}

func TestDetect_Order(t *testing.T) {
	cases := map[string]ShapeKind{
		`{"data":[],"pagination":{},"count":1,"results":[]}`: ShapeCustom,
		`{"count":1,"results":[]}`:                           ShapeCountResults,
		`[]`:                                                 ShapeArray,
		`{"data":[]}`:                                        ShapeUnknown,
		`{"count":1}`:                                        ShapeUnknown,
	}
	for raw, want := range cases {
		if got := Detect(gjson.Parse(raw)).Kind; got != want {
			t.Fatalf("Detect(%s) = %s, want %s", raw, got, want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, limit, want int
	}{
		{57, 20, 3},
		{12, 10, 2},
		{10, 10, 1},
		{1, 1, 1},
		{0, 10, 0},
		{0, 0, 0},
		{5, 0, 1},
		{5, -1, 1},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
	for total := 0; total <= 200; total++ {
		for limit := 1; limit <= 25; limit++ {
			got := TotalPages(total, limit)
			if got*limit < total || (got > 0 && (got-1)*limit >= total) {
				t.Fatalf("TotalPages(%d, %d) = %d is not the ceiling", total, limit, got)
			}
		}
	}
}
