// Package langdetect identifies a source file's language with an explicit
// confidence score, layering extension lookup, backup-suffix stripping,
// shebang inspection, syntax-pattern scoring, and structural-signature
// scoring, gated by a final confidence threshold below which the file is
// routed to the universal text splitter instead of a language-specific one.
package langdetect

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

// Result is the detector's output for one file.
type Result struct {
	Language   string
	Confidence float64
	Indicators []string
}

// Unknown is the zero-confidence result returned when nothing matches.
var Unknown = Result{Language: "unknown", Confidence: 0}

// extensionMap mirrors the teacher's parser.DetectLanguage switch, extended
// with the rest of the languages the chunker's AST/fallback cascade supports.
var extensionMap = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "shell",
	".bash":  "shell",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".md":    "markdown",
	".sql":   "sql",
	".proto": "protobuf",
}

// backupSuffixPatterns maps a recognized backup/temp pattern to its own
// confidence contribution, per spec's {0.95, 0.9, 0.8, 0.7, 0.6, 0.5} scale.
var backupSuffixPatterns = []struct {
	strip      func(name string) (string, bool)
	confidence float64
}{
	{strip: stripSuffix(".bak"), confidence: 0.95},
	{strip: stripSuffix("~"), confidence: 0.9},
	{strip: stripSuffix(".swp"), confidence: 0.8},
	{strip: stripSuffix(".orig"), confidence: 0.7},
	{strip: stripDotSwapPrefix, confidence: 0.6},
	{strip: stripHashWrap, confidence: 0.5},
}

func stripSuffix(suffix string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix), true
		}
		return "", false
	}
}

// stripDotSwapPrefix handles vim-style ".x.swp" where the leading dot and
// the file's own extension are both stripped to recover "x"'s extension.
func stripDotSwapPrefix(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".swp") {
		inner := strings.TrimSuffix(strings.TrimPrefix(base, "."), ".swp")
		return filepath.Join(filepath.Dir(name), inner), inner != ""
	}
	return "", false
}

// stripHashWrap handles Emacs-style "#x#" auto-save files.
func stripHashWrap(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") && len(base) > 2 {
		inner := base[1 : len(base)-1]
		return filepath.Join(filepath.Dir(name), inner), inner != ""
	}
	return "", false
}

var shebangPatterns = []struct {
	marker   string
	language string
}{
	{"python", "python"},
	{"node", "javascript"},
	{"bash", "shell"},
	{"sh", "shell"},
	{"ruby", "ruby"},
	{"perl", "perl"},
}

// syntaxPattern is one regex whose match counts toward a language's score.
type syntaxPattern struct {
	language string
	regex    *regexp.Regexp
	strong   bool // strong indicators need only 1 match; weak need >=2
}

var syntaxPatterns = []syntaxPattern{
	{"python", regexp.MustCompile(`(?m)^def\s+\w+\s*\(.*\)\s*:`), true},
	{"python", regexp.MustCompile(`(?m)^class\s+\w+.*:\s*$`), true},
	{"python", regexp.MustCompile(`(?m)^import\s+\w+`), false},
	{"python", regexp.MustCompile(`(?m)^from\s+\w+\s+import\s+`), false},
	{"go", regexp.MustCompile(`(?m)^package\s+\w+`), true},
	{"go", regexp.MustCompile(`(?m)^func\s+\w+\s*\(`), true},
	{"javascript", regexp.MustCompile(`(?m)^(const|let|var)\s+\w+\s*=`), false},
	{"javascript", regexp.MustCompile(`(?m)function\s*\w*\s*\(.*\)\s*\{`), false},
	{"javascript", regexp.MustCompile(`(?m)^export\s+(default\s+)?`), false},
	{"rust", regexp.MustCompile(`(?m)^fn\s+\w+\s*\(`), true},
	{"rust", regexp.MustCompile(`(?m)^use\s+\w+`), false},
	{"java", regexp.MustCompile(`(?m)^(public|private)\s+(class|interface)\s+\w+`), true},
}

var structurePatterns = []struct {
	language string
	test     func(src []byte) bool
}{
	{"json", looksLikeJSON},
	{"yaml", looksLikeYAML},
}

func looksLikeJSON(src []byte) bool {
	trimmed := bytes.TrimSpace(src)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func looksLikeYAML(src []byte) bool {
	lines := bytes.Split(src, []byte("\n"))
	colonLines := 0
	for _, l := range lines {
		t := bytes.TrimSpace(l)
		if len(t) == 0 || bytes.HasPrefix(t, []byte("#")) {
			continue
		}
		if bytes.Contains(t, []byte(":")) {
			colonLines++
		}
	}
	return colonLines > 0
}

// Options configures the gated fallback threshold.
type Options struct {
	BackupConfidenceThreshold float64
}

// DefaultOptions sets the threshold spec.md §4.5 names as the default.
func DefaultOptions() Options {
	return Options{BackupConfidenceThreshold: 0.7}
}

// Detector runs the layered detection policy.
type Detector struct {
	opts Options
}

// New builds a Detector with the given options.
func New(opts Options) *Detector {
	if opts.BackupConfidenceThreshold == 0 {
		opts.BackupConfidenceThreshold = 0.7
	}
	return &Detector{opts: opts}
}

// Detect classifies fileName's content. content may be nil when only the
// extension/backup-suffix layers are needed (no read required); shebang and
// pattern layers are skipped in that case and the file falls through to the
// gated fallback if extension/backup lookup also fails.
func (d *Detector) Detect(fileName string, content []byte) Result {
	if lang, ok := extensionMap[strings.ToLower(filepath.Ext(fileName))]; ok {
		return Result{Language: lang, Confidence: 1.0, Indicators: []string{"extension"}}
	}

	if result, ok := d.detectBackupSuffix(fileName, content); ok {
		return d.gate(result)
	}

	if len(content) == 0 {
		return d.gate(Unknown)
	}

	if lang, ok := detectShebang(content); ok {
		return d.gate(Result{Language: lang, Confidence: 0.9, Indicators: []string{"shebang"}})
	}

	if result, ok := detectSyntaxPatterns(content); ok {
		return d.gate(result)
	}

	if result, ok := detectStructurePatterns(content); ok {
		return d.gate(result)
	}

	return d.gate(Unknown)
}

func (d *Detector) gate(r Result) Result {
	if r.Language == "" || r.Confidence < d.opts.BackupConfidenceThreshold {
		return Result{Language: "text", Confidence: r.Confidence, Indicators: append(r.Indicators, "gated-fallback")}
	}
	return r
}

func (d *Detector) detectBackupSuffix(fileName string, content []byte) (Result, bool) {
	for _, p := range backupSuffixPatterns {
		inner, ok := p.strip(fileName)
		if !ok {
			continue
		}
		innerResult := d.Detect(inner, content)
		if innerResult.Language == "" || innerResult.Language == "text" {
			continue
		}
		conf := innerResult.Confidence
		if p.confidence < conf {
			conf = p.confidence
		}
		return Result{
			Language:   innerResult.Language,
			Confidence: conf,
			Indicators: append([]string{"backup-suffix"}, innerResult.Indicators...),
		}, true
	}
	return Result{}, false
}

func detectShebang(content []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() {
		return "", false
	}
	firstLine := scanner.Text()
	if !strings.HasPrefix(firstLine, "#!") {
		return "", false
	}
	for _, sp := range shebangPatterns {
		if strings.Contains(firstLine, sp.marker) {
			return sp.language, true
		}
	}
	return "", false
}

func detectSyntaxPatterns(content []byte) (Result, bool) {
	type tally struct {
		matches []string
		strong  bool
	}
	scores := make(map[string]*tally)

	for _, p := range syntaxPatterns {
		if p.regex.Match(content) {
			t, ok := scores[p.language]
			if !ok {
				t = &tally{}
				scores[p.language] = t
			}
			t.matches = append(t.matches, p.regex.String())
			if p.strong {
				t.strong = true
			}
		}
	}

	totalByLanguage := make(map[string]int)
	for _, p := range syntaxPatterns {
		totalByLanguage[p.language]++
	}

	var best string
	var bestConf float64
	var bestIndicators []string
	for lang, t := range scores {
		required := 2
		if t.strong {
			required = 1
		}
		if len(t.matches) < required {
			continue
		}
		conf := float64(len(t.matches)) / float64(totalByLanguage[lang])
		if conf > bestConf {
			bestConf = conf
			best = lang
			bestIndicators = append([]string{"syntax-pattern"}, t.matches...)
		}
	}

	if best == "" {
		return Result{}, false
	}
	return Result{Language: best, Confidence: bestConf, Indicators: bestIndicators}, true
}

func detectStructurePatterns(content []byte) (Result, bool) {
	for _, sp := range structurePatterns {
		if sp.test(content) {
			return Result{Language: sp.language, Confidence: 0.7, Indicators: []string{"structure-pattern"}}, true
		}
	}
	return Result{}, false
}
