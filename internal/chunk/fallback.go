package chunk

import (
	"strings"
)

// FallbackOptions configures the bracket-balance and line-split strategies.
type FallbackOptions struct {
	MaxChunkSize     int // target chunk size in bytes for bracket-balance splitting
	MaxLinesPerChunk int
	ChunkOverlap     int // lines of overlap between consecutive line-split chunks
}

// DefaultFallbackOptions matches the teacher's MaxChunkTokens-derived sizing,
// converted to a byte-oriented target since the fallback strategies operate
// on raw source with no symbol boundaries to reason about.
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{
		MaxChunkSize:     MaxChunkTokens * 4,
		MaxLinesPerChunk: 200,
		ChunkOverlap:     10,
	}
}

// BracketBalanceSplit splits source at zero-bracket-depth points near
// MaxChunkSize, tracking `{}()[]` depth with string/comment awareness so a
// brace inside a string literal or a line comment never counts. It is the
// second strategy in the cascade, tried after AST parsing fails, times out,
// targets an unsupported language, or the language detector's confidence
// falls below threshold.
func BracketBalanceSplit(projectID, filePath, language string, source []byte, opts FallbackOptions) []Chunk {
	if opts.MaxChunkSize <= 0 {
		opts = DefaultFallbackOptions()
	}
	lines := splitLinesKeepEnds(source)

	var chunks []Chunk
	depth := 0
	inString := byte(0)
	inLineComment := false
	inBlockComment := false

	chunkStartLine := 1
	var buf strings.Builder
	lineNo := 0

	flush := func(endLine int) {
		content := buf.String()
		if strings.TrimSpace(content) == "" {
			buf.Reset()
			chunkStartLine = endLine + 1
			return
		}
		chunks = append(chunks, Chunk{
			ProjectID:  projectID,
			FilePath:   filePath,
			Language:   language,
			StartLine:  chunkStartLine,
			EndLine:    endLine,
			Type:       ChunkTypeCode,
			Kind:       KindBlock,
			Strategy:   StrategyBracketBalance,
			Confidence: 0,
			Content:    content,
			ID:         GenerateID(filePath, chunkStartLine, endLine, content),
		})
		buf.Reset()
		chunkStartLine = endLine + 1
	}

	for _, line := range lines {
		lineNo++
		inLineComment = false
		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			c := runes[i]
			switch {
			case inBlockComment:
				if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
					inBlockComment = false
					i++
				}
			case inLineComment:
				// rest of line is comment; stop scanning brackets
			case inString != 0:
				if c == '\\' {
					i++
				} else if byte(c) == inString {
					inString = 0
				}
			case c == '"' || c == '\'' || c == '`':
				inString = byte(c)
			case c == '/' && i+1 < len(runes) && runes[i+1] == '/':
				inLineComment = true
			case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
				inBlockComment = true
				i++
			case c == '#':
				inLineComment = true
			case c == '{' || c == '(' || c == '[':
				depth++
			case c == '}' || c == ')' || c == ']':
				if depth > 0 {
					depth--
				}
			}
		}

		buf.WriteString(line)

		if depth == 0 && buf.Len() >= opts.MaxChunkSize {
			flush(lineNo)
		}
	}
	if buf.Len() > 0 {
		flush(lineNo)
	}

	return chunks
}

// LineSplit splits source into fixed-size, overlapping chunks of
// MaxLinesPerChunk lines, the final cascade stage when even bracket-balance
// splitting cannot be reasoned about (e.g. binary-adjacent or malformed text).
func LineSplit(projectID, filePath, language string, source []byte, opts FallbackOptions) []Chunk {
	if opts.MaxLinesPerChunk <= 0 {
		opts = DefaultFallbackOptions()
	}
	lines := splitLinesKeepEnds(source)
	if len(lines) == 0 {
		return nil
	}

	step := opts.MaxLinesPerChunk - opts.ChunkOverlap
	if step <= 0 {
		step = opts.MaxLinesPerChunk
	}

	var chunks []Chunk
	for start := 0; start < len(lines); start += step {
		end := start + opts.MaxLinesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		content := strings.Join(lines[start:end], "")
		chunks = append(chunks, Chunk{
			ProjectID:  projectID,
			FilePath:   filePath,
			Language:   language,
			StartLine:  start + 1,
			EndLine:    end,
			Type:       ChunkTypeCode,
			Kind:       KindFallback,
			Strategy:   StrategyLineSplit,
			Confidence: 0,
			Content:    content,
			ID:         GenerateID(filePath, start+1, end, content),
		})
		if end == len(lines) {
			break
		}
	}
	return chunks
}

// splitLinesKeepEnds splits source on '\n', keeping the trailing newline on
// every line but the last, so concatenating the result reproduces source
// exactly — required by the cascade's byte-reproduction invariant.
func splitLinesKeepEnds(source []byte) []string {
	text := string(source)
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
