package chunk

import (
	"fmt"
	"strings"

	"github.com/kkkqkx123/codeforge-index/internal/parser"
	"github.com/kkkqkx123/codeforge-index/internal/security"
)

// Extractor converts parsed symbols into chunks.
type Extractor struct {
	testPatterns        []string
	hierarchical        bool
	hierarchicalChunker *HierarchicalChunker
	secretDetector      *security.SecretDetector
}

// NewExtractor creates a chunk extractor with default test patterns.
func NewExtractor() *Extractor {
	return &Extractor{
		testPatterns: []string{
			"test_",
			"_test.py",
			"_test.go",
			".test.js",
			".test.ts",
			".spec.js",
			".spec.ts",
			"/tests/",
			"/__tests__/",
		},
		hierarchicalChunker: NewHierarchicalChunker(),
		secretDetector:      security.NewSecretDetector(),
	}
}

// SetHierarchicalChunking enables or disables hierarchical chunking for large files.
func (e *Extractor) SetHierarchicalChunking(enabled bool) {
	e.hierarchical = enabled
}

// ExtractResult contains chunks and relationships from extraction.
type ExtractResult struct {
	Chunks        []Chunk
	Relationships []parser.Relationship
}

// Extract parses code and returns chunks.
func (e *Extractor) Extract(source []byte, filePath, projectID, modulePath string) ([]Chunk, error) {
	result, err := e.ExtractWithRelationships(source, filePath, projectID, modulePath)
	if err != nil {
		return nil, err
	}
	return result.Chunks, nil
}

// ExtractWithRelationships parses code and returns both chunks and relationships.
// It returns an error when no AST strategy is available for filePath's language;
// callers run the bracket-balance/line-split fallback cascade (see fallback.go) in that case.
func (e *Extractor) ExtractWithRelationships(source []byte, filePath, projectID, modulePath string) (*ExtractResult, error) {
	lang, ok := parser.DetectLanguage(filePath)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}

	p, err := parser.NewParser(lang)
	if err != nil {
		return nil, err
	}

	// Use ParseWithRelationships to get both symbols and relationships
	parseResult, err := p.ParseWithRelationships(source, filePath)
	if err != nil {
		return nil, err
	}

	symbols := parseResult.Symbols
	relationships := parseResult.Relationships

	isTest := e.isTestFile(filePath)

	// Use hierarchical chunking if enabled
	if e.hierarchical {
		chunks := e.hierarchicalChunker.ChunkSymbols(symbols, filePath, projectID, modulePath, isTest)
		for i := range chunks {
			chunks[i].Language = string(lang)
			chunks[i].Strategy = StrategyAST
		}
		return &ExtractResult{Chunks: chunks, Relationships: relationships}, nil
	}

	// Standard chunking
	moduleRoot, submodule := parseModulePath(modulePath)

	var chunks []Chunk

	for _, sym := range symbols {
		chunk := Chunk{
			ProjectID:  projectID,
			FilePath:   filePath,
			StartLine:  sym.StartLine,
			EndLine:    sym.EndLine,
			Type:       ChunkTypeCode,
			Kind:       string(sym.Kind),
			Language:   string(lang),
			Strategy:   StrategyAST,
			Confidence: 1.0,
			ModulePath: modulePath,
			ModuleRoot: moduleRoot,
			Submodule:  submodule,
			SymbolName: sym.Name,
			Content:    sym.Content,
			Signature:  sym.Signature,
			Docstring:  sym.Docstring,
			IsTest:     isTest,
		}

		// Set retrieval weight
		if isTest {
			chunk.RetrievalWeight = 0.5
		} else {
			chunk.RetrievalWeight = 1.0
		}

		// Inject context header for methods
		if sym.Kind == parser.SymbolMethod && sym.Parent != "" {
			chunk.ContextHeader = fmt.Sprintf("# File: %s\n# Class: %s\n", filePath, sym.Parent)
		}

		// Generate ID
		chunk.ID = GenerateID(filePath, sym.StartLine, sym.EndLine, chunk.Content)

		// Detect and redact secrets
		if e.secretDetector.HasSecrets(chunk.Content) {
			secrets := e.secretDetector.Detect(chunk.Content)
			chunk.Content = e.secretDetector.Redact(chunk.Content, secrets)
			chunk.HasSecrets = true
		}

		chunks = append(chunks, chunk)
	}

	return &ExtractResult{Chunks: chunks, Relationships: relationships}, nil
}

func (e *Extractor) isTestFile(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, pattern := range e.testPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func parseModulePath(modulePath string) (root, sub string) {
	parts := strings.SplitN(modulePath, ".", 2)
	root = parts[0]
	if len(parts) > 1 {
		sub = parts[1]
	}
	return
}
