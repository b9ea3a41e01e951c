package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSuggestions(t *testing.T) {
	gen := NewSuggestionGenerator()

	suggestions := gen.Generate("kafka consumer throttling")

	assert.NotEmpty(t, suggestions)

	found := false
	for _, s := range suggestions {
		if s.Term == "queue" || s.Term == "message" || s.Term == "broker" {
			found = true
			break
		}
	}
	assert.True(t, found, "should suggest message queue related terms for kafka")
}

func TestGenerateSuggestionsUnknownWord(t *testing.T) {
	gen := NewSuggestionGenerator()

	suggestions := gen.Generate("completely unrecognized gibberish")

	assert.Empty(t, suggestions)
}

func TestGenerateSuggestionsDeduped(t *testing.T) {
	gen := NewSuggestionGenerator()

	suggestions := gen.Generate("auth authentication")

	seen := make(map[string]bool)
	for _, s := range suggestions {
		assert.False(t, seen[s.Term], "duplicate suggestion term %s", s.Term)
		seen[s.Term] = true
	}
}

func TestSuggestionLimitedToFive(t *testing.T) {
	gen := NewSuggestionGenerator()

	suggestions := gen.Generate("auth authentication db database queue kafka error test config http api user file cache log timeout")

	assert.LessOrEqual(t, len(suggestions), 5)
}
