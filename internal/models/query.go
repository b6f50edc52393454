package models

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// QueryType selects which base-form field a query matches against.
type QueryType string

// Query types. The alternate-form variants are carried in the schema (three
// base-form group fields, three composite scores) but currently match the
// same groups as an exact query.
const (
	QueryTypeExact    QueryType = "exact"
	QueryTypeDefinite QueryType = "definite_alt_forms"
	QueryTypePossible QueryType = "possible_alt_forms"
)

// Valid reports whether t is a known query type.
func (t QueryType) Valid() bool {
	switch t {
	case QueryTypeExact, QueryTypeDefinite, QueryTypePossible:
		return true
	}
	return false
}

// Query is one search request. Str must already be width-normalized and
// kana-converted by the caller. UserID is stable per browser session and
// keys the next-page cache.
type Query struct {
	Str     string
	PageNum int
	Type    QueryType
	UserID  string
}

// Validate checks the query against the configured maximum length.
func (q Query) Validate(maxQueryLength int) error {
	if q.Str == "" {
		return errors.New("query string is required")
	}
	if utf8.RuneCountInString(q.Str) > maxQueryLength {
		return fmt.Errorf("query longer than %d characters", maxQueryLength)
	}
	if q.PageNum < 1 {
		return errors.New("page number must be at least 1")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("unknown query type %q", q.Type)
	}
	return nil
}

// Same reports whether o asks for the same result page as q, ignoring the
// requesting user. Used by the next-page cache hit check.
func (q Query) Same(o Query) bool {
	return q.Str == o.Str && q.PageNum == o.PageNum && q.Type == o.Type
}
