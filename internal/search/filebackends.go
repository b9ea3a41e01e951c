package search

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileLister is the minimal capability the file-path backends need: every
// currently-indexed relative path for a project. projectstate.Store's
// IndexedPaths satisfies this.
type FileLister interface {
	IndexedPaths(ctx context.Context, projectID string) ([]string, error)
}

// FilenameBackend matches query against each indexed path's base name,
// case-insensitively, exact match first and substring match as a fallback so
// a query like "handler.go" or just "handler" both resolve. Grounded on
// §4.12's EXACT_FILENAME classification, which this backend is the sole
// member of BackendSet for.
func FilenameBackend(lister FileLister) Backend {
	return func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
		paths, err := lister.IndexedPaths(ctx, projectID)
		if err != nil {
			return nil, err
		}

		needle := strings.ToLower(strings.TrimSpace(query))
		var exact, partial []BackendResult
		for _, p := range paths {
			base := strings.ToLower(filepath.Base(p))
			switch {
			case base == needle:
				exact = append(exact, fileResult(p, 1.0))
			case strings.Contains(base, needle):
				partial = append(partial, fileResult(p, 0.6))
			}
		}

		results := append(exact, partial...)
		if len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	}
}

// PathBackend matches query as a doublestar glob against every indexed
// relative path, for §4.12's PATH_PATTERN classification (queries containing
// a path separator or glob metacharacter).
func PathBackend(lister FileLister) Backend {
	return func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
		paths, err := lister.IndexedPaths(ctx, projectID)
		if err != nil {
			return nil, err
		}

		pattern := strings.TrimSpace(query)
		var results []BackendResult
		for _, p := range paths {
			matched, err := doublestar.Match(pattern, p)
			if err != nil {
				// an invalid glob degrades to no matches rather than failing the search
				return nil, nil
			}
			if matched {
				results = append(results, fileResult(p, 1.0))
				if len(results) >= limit {
					break
				}
			}
		}
		return results, nil
	}
}

// ExtensionBackend matches query (interpreted as a file extension, with or
// without a leading dot) against every indexed path's extension, for
// §4.12's EXTENSION_SEARCH classification.
func ExtensionBackend(lister FileLister) Backend {
	return func(ctx context.Context, projectID, query string, filter map[string]interface{}, limit int) ([]BackendResult, error) {
		paths, err := lister.IndexedPaths(ctx, projectID)
		if err != nil {
			return nil, err
		}

		ext := strings.ToLower(strings.TrimSpace(query))
		ext = strings.TrimPrefix(ext, "*")
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		var results []BackendResult
		for _, p := range paths {
			if strings.ToLower(filepath.Ext(p)) == ext {
				results = append(results, fileResult(p, 0.8))
				if len(results) >= limit {
					break
				}
			}
		}
		return results, nil
	}
}

func fileResult(path string, score float64) BackendResult {
	return BackendResult{
		ID:       path,
		Score:    score,
		Kind:     "file",
		FilePath: path,
		Backend:  "",
	}
}
