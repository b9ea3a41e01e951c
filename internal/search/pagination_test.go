package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	now := time.Now()
	encoded := EncodeCursor("abc123", 10, now)
	assert.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded, now)
	require.NoError(t, err)
	assert.Equal(t, "abc123", decoded.QueryHash)
	assert.Equal(t, 10, decoded.Offset)
}

func TestDecodeCursorInvalid(t *testing.T) {
	_, err := DecodeCursor("not-valid-base64!!!", time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cursor")
}

func TestDecodeCursorMalformed(t *testing.T) {
	// Valid base64 but invalid JSON
	_, err := DecodeCursor("bm90LWpzb24=", time.Now()) // "not-json"
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cursor format")
}

func TestPaginate(t *testing.T) {
	now := time.Now()
	results := make([]BackendResult, 25)
	for i := range results {
		results[i] = BackendResult{ID: "r", FilePath: "file.py", LineRange: [2]int{i, i}}
	}

	page1 := Paginate(results, 0, 10, "hash123", KindSemanticDescription, now)
	assert.Len(t, page1.Results, 10)
	assert.Equal(t, 25, page1.TotalCount)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.Cursor)
	assert.Equal(t, KindSemanticDescription, page1.QueryType)

	cursor, err := DecodeCursor(page1.Cursor, now)
	require.NoError(t, err)
	assert.Equal(t, 10, cursor.Offset)

	page2 := Paginate(results, cursor.Offset, 10, "hash123", KindSemanticDescription, now)
	assert.Len(t, page2.Results, 10)
	assert.True(t, page2.HasMore)

	cursor2, _ := DecodeCursor(page2.Cursor, now)
	page3 := Paginate(results, cursor2.Offset, 10, "hash123", KindSemanticDescription, now)
	assert.Len(t, page3.Results, 5) // Only 5 remaining
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.Cursor)
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate(nil, 0, 10, "hash123", KindSemanticDescription, time.Now())
	assert.Len(t, page.Results, 0)
	assert.Equal(t, 0, page.TotalCount)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.Cursor)
}

func TestPaginateOffsetBeyondEnd(t *testing.T) {
	results := make([]BackendResult, 5)
	page := Paginate(results, 100, 10, "hash123", KindSemanticDescription, time.Now())
	assert.Len(t, page.Results, 0)
	assert.Equal(t, 5, page.TotalCount)
	assert.False(t, page.HasMore)
}

func TestHashQuery(t *testing.T) {
	hash1 := HashQuery("query1", "repo1", "module1")
	hash2 := HashQuery("query1", "repo1", "module1")
	hash3 := HashQuery("query2", "repo1", "module1")

	assert.Equal(t, hash1, hash2, "same inputs should produce same hash")
	assert.NotEqual(t, hash1, hash3, "different inputs should produce different hash")
	assert.Len(t, hash1, 16, "hash should be 16 hex chars")
}

func TestCursorExpiry(t *testing.T) {
	now := time.Now()
	old := now.Add(-11 * time.Minute)
	encoded := EncodeCursor("test", 0, old)

	_, err := DecodeCursor(encoded, now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
