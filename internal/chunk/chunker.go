package chunk

import (
	"github.com/kkkqkx123/codeforge-index/internal/errkind"
	"github.com/kkkqkx123/codeforge-index/internal/langdetect"
)

// Chunker drives the full strategy cascade for one file: AST extraction,
// then bracket-balance split, then line split. A failure in strategy N
// degrades to strategy N+1 for that file only; it never aborts a run.
type Chunker struct {
	extractor       *Extractor
	fallbackOptions FallbackOptions
	onDegrade       func(filePath string, fromStrategy Strategy, reason error)
}

// NewChunker builds a Chunker. onDegrade, if non-nil, is invoked every time
// the cascade falls through a stage; IndexCoordinator wires this to
// ResourceGuard so repeated AST failures across a rolling window can trip
// the error threshold.
func NewChunker(onDegrade func(filePath string, fromStrategy Strategy, reason error)) *Chunker {
	return &Chunker{
		extractor:       NewExtractor(),
		fallbackOptions: DefaultFallbackOptions(),
		onDegrade:       onDegrade,
	}
}

// SetHierarchicalChunking toggles the AST strategy's large-class splitting.
func (c *Chunker) SetHierarchicalChunking(enabled bool) {
	c.extractor.SetHierarchicalChunking(enabled)
}

// Result is one file's chunking output plus the detected language's confidence,
// so callers can tell which cascade stage actually produced the chunks.
type Result struct {
	Chunks       []Chunk
	Language     string
	Confidence   float64
	StrategyUsed Strategy
}

// Chunk runs the cascade for one file's source bytes. detection is the
// LanguageDetector's result for this file; below BackupConfidenceThreshold
// (already folded into detection.Language == "text" by langdetect's own
// gate) the AST strategy is skipped entirely and the cascade starts at
// bracket-balance.
func (c *Chunker) Chunk(projectID, filePath, modulePath string, source []byte, detection langdetect.Result) Result {
	if detection.Language != "" && detection.Language != "text" {
		if extracted, err := c.extractor.Extract(source, filePath, projectID, modulePath); err == nil {
			return Result{Chunks: extracted, Language: detection.Language, Confidence: detection.Confidence, StrategyUsed: StrategyAST}
		} else if c.onDegrade != nil {
			c.onDegrade(filePath, StrategyAST, errkind.Wrap(errkind.DataFormat, err, "ast parse %s", filePath))
		}
	}

	bracketChunks := BracketBalanceSplit(projectID, filePath, detection.Language, source, c.fallbackOptions)
	if len(bracketChunks) > 0 {
		return Result{Chunks: bracketChunks, Language: detection.Language, Confidence: detection.Confidence, StrategyUsed: StrategyBracketBalance}
	}
	if c.onDegrade != nil {
		c.onDegrade(filePath, StrategyBracketBalance, errkind.Wrap(errkind.DataFormat, errEmptyBracketSplit, "bracket split %s", filePath))
	}

	lineChunks := LineSplit(projectID, filePath, detection.Language, source, c.fallbackOptions)
	return Result{Chunks: lineChunks, Language: detection.Language, Confidence: detection.Confidence, StrategyUsed: StrategyLineSplit}
}

var errEmptyBracketSplit = emptySplitError("bracket-balance split produced no chunks")

type emptySplitError string

func (e emptySplitError) Error() string { return string(e) }
