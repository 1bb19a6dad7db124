package query

import "strings"

const (
	TypeFetch     = "admin_client.query.fetch"
	TypeFetchPage = "admin_client.query.fetch_page"
)

type FetchMessage struct {
	Path  string
	Query map[string]string
}

func (FetchMessage) Type() string { return TypeFetch }

func (m FetchMessage) Validate() error {
	if strings.TrimSpace(m.Path) == "" {
		return queryValidationError("path", "path is required")
	}
	return nil
}

type FetchPageMessage struct {
	Path  string
	Page  int
	Limit int
	Query map[string]string
}

func (FetchPageMessage) Type() string { return TypeFetchPage }

func (m FetchPageMessage) Validate() error {
	if strings.TrimSpace(m.Path) == "" {
		return queryValidationError("path", "path is required")
	}
	if m.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
