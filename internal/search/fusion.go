package search

import "sort"

// BackendResult is one hit returned by a single backend, per §4.12's
// uniform backend contract.
type BackendResult struct {
	ID        string
	Score     float64 // in [0,1]
	Kind      string
	Snippet   string
	FilePath  string
	LineRange [2]int
	Backend   string // which backend produced this hit, used only for weighting
}

// BackendWeights maps a backend name to its fusion weight for one query
// kind. Backends absent from the map get weight 1.0.
type BackendWeights map[string]float64

// DefaultWeights returns the per-query-type backend weights: structural
// backends (filename/path/extension) are trusted more for the query kinds
// that route to them, semantic is trusted more for descriptive queries, and
// graph results carry a discount since they are one hop removed from the
// literal match.
func DefaultWeights(kind QueryKind) BackendWeights {
	switch kind {
	case KindExactFilename:
		return BackendWeights{"filename": 2.0}
	case KindPathPattern:
		return BackendWeights{"path": 2.0}
	case KindExtensionSearch:
		return BackendWeights{"extension": 1.5}
	case KindGraphRelation:
		return BackendWeights{"graph": 1.5, "semantic": 0.75}
	case KindHybrid:
		return BackendWeights{"filename": 1.5, "path": 1.25, "extension": 1.0, "semantic": 1.0, "graph": 0.75}
	case KindKeyword:
		return BackendWeights{"filename": 1.5, "path": 1.25, "extension": 1.0}
	default: // SEMANTIC_DESCRIPTION
		return BackendWeights{"semantic": 1.5}
	}
}

// rrfK is the reciprocal-rank-fusion rank-damping constant; 60 is the value
// the RRF literature (Cormack et al.) converges on and the one value the
// whole fusion step is tuned against.
const rrfK = 60.0

// Fuse merges one or more backends' independently-ranked result lists into
// a single list via weighted Reciprocal Rank Fusion, truncated to k. Ties
// are broken by (1) higher individual score, (2) shorter file path,
// (3) lexicographic id, matching §4.12 exactly.
func Fuse(perBackend map[string][]BackendResult, weights BackendWeights, k int) []BackendResult {
	type accum struct {
		result     BackendResult
		fusedScore float64
	}
	byID := make(map[string]*accum)

	for backend, results := range perBackend {
		w := weights[backend]
		if w == 0 {
			w = 1.0
		}
		for rank, r := range results {
			r.Backend = backend
			contribution := w / (rrfK + float64(rank+1))
			if existing, ok := byID[r.ID]; ok {
				existing.fusedScore += contribution
				if r.Score > existing.result.Score {
					existing.result = r
				}
			} else {
				byID[r.ID] = &accum{result: r, fusedScore: contribution}
			}
		}
	}

	merged := make([]*accum, 0, len(byID))
	for _, a := range byID {
		merged = append(merged, a)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.fusedScore != b.fusedScore {
			return a.fusedScore > b.fusedScore
		}
		if a.result.Score != b.result.Score {
			return a.result.Score > b.result.Score
		}
		if len(a.result.FilePath) != len(b.result.FilePath) {
			return len(a.result.FilePath) < len(b.result.FilePath)
		}
		return a.result.ID < b.result.ID
	})

	if k > 0 && len(merged) > k {
		merged = merged[:k]
	}

	out := make([]BackendResult, len(merged))
	for i, a := range merged {
		out[i] = a.result
	}
	return out
}
