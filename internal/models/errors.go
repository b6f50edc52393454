package models

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. These never reach end users verbatim.
var (
	// ErrPageUnreachable indicates an HTTP failure or a page whose structure
	// changed so drastically that parsing cannot begin.
	ErrPageUnreachable = errors.New("page unreachable")

	// ErrParseFailed indicates the page was reached but expected elements
	// were missing.
	ErrParseFailed = errors.New("page parse failed")

	// ErrResourceUnavailable indicates the analyzer dictionary or the index
	// is unreachable. Fatal to the current crawl run, not to the process.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrPermissionDenied indicates a write attempted through a read-only
	// store handle.
	ErrPermissionDenied = errors.New("permission denied: read-only handle")

	// ErrSerializationMismatch indicates a cache read saw an incompatible
	// serialization format. Always treated as a cache miss.
	ErrSerializationMismatch = errors.New("cache serialization mismatch")
)

// SkipReason classifies why an article was skipped rather than indexed.
type SkipReason string

// Skip reasons. These are domain outcomes, not failures; they are recorded
// as crawl skips so the URL is never re-crawled.
const (
	SkipReasonPaywalled SkipReason = "paywalled"
	SkipReasonNotFound  SkipReason = "not_found"
	SkipReasonMalformed SkipReason = "malformed"
)

// SkipError reports that a candidate article is not indexable.
type SkipError struct {
	Reason SkipReason
	URL    string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("article skipped (%s): %s", e.Reason, e.URL)
}

// AsSkip unwraps err as a SkipError if it is one.
func AsSkip(err error) (*SkipError, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip, true
	}
	return nil, false
}
