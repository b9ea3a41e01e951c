// Package ignore composes gitignore-compatible exclusion rules from several
// layered sources into one decision per path: built-in defaults, the
// project's root .gitignore, any depth-1 .gitignore, a project-local
// .indexignore, and caller-supplied excludes, applied in that order with
// later layers able to re-include a path a earlier layer excluded.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	gogitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultPatterns are excluded even when no .gitignore mentions them, matching
// the directories a code index has no business descending into.
var DefaultPatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	".indexignore",
	"*.pyc",
	"__pycache__/",
	".DS_Store",
	"dist/",
	"build/",
	".venv/",
	".idea/",
	".vscode/",
}

// layer is one source of patterns, scoped to the directory it was read from.
type layer struct {
	source   string
	patterns []gogitignore.Pattern
}

// Engine evaluates a path against all composed layers in source order.
// A later layer's match (Include or Exclude) overrides an earlier layer's,
// matching git's own "last matching pattern wins" rule across concatenated
// gitignore sources.
type Engine struct {
	layers []layer
}

// NewEngine builds an Engine seeded with DefaultPatterns.
func NewEngine() *Engine {
	e := &Engine{}
	e.addPatterns("defaults", nil, DefaultPatterns)
	return e
}

// LoadRoot reads projectRoot/.gitignore, if present, as an unscoped (domain-nil) layer.
func (e *Engine) LoadRoot(projectRoot string) error {
	return e.loadFile(filepath.Join(projectRoot, ".gitignore"), nil, "root:.gitignore")
}

// LoadIndexIgnore reads projectRoot/.indexignore, if present. Patterns here are
// index-specific exclusions layered after .gitignore, so they can exclude paths
// git itself tracks (e.g. generated fixtures) without touching version control.
func (e *Engine) LoadIndexIgnore(projectRoot string) error {
	return e.loadFile(filepath.Join(projectRoot, ".indexignore"), nil, "root:.indexignore")
}

// LoadNestedGitignore reads a .gitignore found at depth below the project root.
// dirRelPath is the slash-separated directory path relative to the project root;
// its patterns are scoped to that subtree via go-git's domain mechanism.
func (e *Engine) LoadNestedGitignore(projectRoot, dirRelPath string) error {
	domain := strings.Split(dirRelPath, "/")
	path := filepath.Join(projectRoot, filepath.FromSlash(dirRelPath), ".gitignore")
	return e.loadFile(path, domain, "nested:"+dirRelPath)
}

// AddUserExcludes layers caller-supplied glob patterns last, so explicit
// command-line/config excludes always have final say.
func (e *Engine) AddUserExcludes(patterns []string) {
	e.addPatterns("user", nil, patterns)
}

func (e *Engine) loadFile(path string, domain []string, source string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	e.addPatterns(source, domain, lines)
	return nil
}

func (e *Engine) addPatterns(source string, domain []string, raw []string) {
	var compiled []gogitignore.Pattern
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		compiled = append(compiled, gogitignore.ParsePattern(line, domain))
	}
	if len(compiled) == 0 {
		return
	}
	e.layers = append(e.layers, layer{source: source, patterns: compiled})
}

// Excluded reports whether relPath (slash-separated, relative to the project
// root) should be excluded from indexing. isDir tells directory-only patterns
// whether they apply.
func (e *Engine) Excluded(relPath string, isDir bool) bool {
	parts := strings.Split(strings.TrimPrefix(relPath, "/"), "/")
	excluded := false
	for _, l := range e.layers {
		for _, p := range l.patterns {
			switch p.Match(parts, isDir) {
			case gogitignore.Exclude:
				excluded = true
			case gogitignore.Include:
				excluded = false
			}
		}
	}
	return excluded
}
