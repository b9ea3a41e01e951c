package search

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cursor represents pagination state for paging through one fused result
// set without re-running the search: the query hash ties a cursor to the
// exact query it was issued against, so a cursor from a different query is
// rejected rather than silently paging through the wrong results.
type Cursor struct {
	QueryHash string    `json:"q"`
	Offset    int       `json:"o"`
	CreatedAt time.Time `json:"t"`
}

// cursorTTL bounds how long a cursor stays valid, so a client cannot page
// through results computed against a project state that has since changed.
const cursorTTL = 10 * time.Minute

// EncodeCursor creates an opaque cursor string for the given query hash and
// offset. issuedAt is passed in rather than read from time.Now() so callers
// keep control of the clock (useful in tests).
func EncodeCursor(queryHash string, offset int, issuedAt time.Time) string {
	cursor := Cursor{QueryHash: queryHash, Offset: offset, CreatedAt: issuedAt}
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses and validates a cursor string against now, the
// caller's notion of the current time.
func DecodeCursor(s string, now time.Time) (*Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding")
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor format")
	}
	if now.Sub(cursor.CreatedAt) > cursorTTL {
		return nil, fmt.Errorf("cursor expired")
	}
	return &cursor, nil
}

// PaginatedResults wraps one page of a fused BackendResult list with
// pagination metadata, for callers (HTTP gateway, CLI --cursor flag) that
// need to fetch a search result set incrementally rather than all at once.
type PaginatedResults struct {
	QueryType  QueryKind      `json:"queryType"`
	Results    []BackendResult `json:"results"`
	TotalCount int            `json:"totalCount"`
	HasMore    bool           `json:"hasMore"`
	Cursor     string         `json:"cursor,omitempty"`
}

// Paginate slices an already-fused result list into one page starting at
// offset, of at most limit entries, and mints a continuation cursor when
// more results remain.
func Paginate(results []BackendResult, offset, limit int, queryHash string, kind QueryKind, now time.Time) PaginatedResults {
	total := len(results)

	if offset >= total {
		return PaginatedResults{QueryType: kind, Results: []BackendResult{}, TotalCount: total}
	}
	page := results[offset:]

	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}

	var cursor string
	if hasMore {
		cursor = EncodeCursor(queryHash, offset+limit, now)
	}

	return PaginatedResults{
		QueryType:  kind,
		Results:    page,
		TotalCount: total,
		HasMore:    hasMore,
		Cursor:     cursor,
	}
}

// HashQuery creates a deterministic, short hash identifying a query's
// parameters, used to bind a Cursor to the exact query it paginates.
func HashQuery(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%x", h[:8])
}
