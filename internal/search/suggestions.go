package search

import (
	"sort"
	"strings"
)

// SuggestionGenerator proposes alternate query terms when a search comes
// back empty, using a small static synonym table over common codebase
// vocabulary (auth, db, queue, ...).
type SuggestionGenerator struct {
	synonyms map[string][]string
}

// Suggestion is one alternate term a caller might retry.
type Suggestion struct {
	Term   string `json:"term"`
	Reason string `json:"reason"`
}

// NewSuggestionGenerator builds a generator with the default synonym table.
func NewSuggestionGenerator() *SuggestionGenerator {
	return &SuggestionGenerator{
		synonyms: map[string][]string{
			"auth":           {"authentication", "login", "session", "token", "credential"},
			"authentication": {"auth", "login", "session", "token"},
			"db":             {"database", "storage", "persistence"},
			"database":       {"db", "storage"},
			"queue":          {"message", "async", "kafka", "broker"},
			"kafka":          {"queue", "message", "broker"},
			"error":          {"exception", "failure", "fault"},
			"test":           {"spec", "unit", "integration", "mock"},
			"config":         {"configuration", "settings", "options", "env"},
			"http":           {"request", "response", "api", "rest", "endpoint"},
			"api":            {"endpoint", "rest", "http", "route"},
			"user":           {"account", "profile", "member"},
			"file":           {"document", "storage", "upload"},
			"cache":          {"redis", "memory", "store", "ttl"},
			"log":            {"logging", "logger", "audit", "trace"},
			"timeout":        {"expiry", "ttl", "deadline", "retry"},
		},
	}
}

// Generate proposes alternate terms for every recognized word in query,
// deduplicated and capped at 5.
func (g *SuggestionGenerator) Generate(query string) []Suggestion {
	words := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool)
	var out []Suggestion

	for _, word := range words {
		for _, syn := range g.synonyms[word] {
			if seen[syn] {
				continue
			}
			seen[syn] = true
			out = append(out, Suggestion{Term: syn, Reason: "synonym for '" + word + "'"})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
