package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
)

// PaperMetadata holds document metadata extracted from paper text.
type PaperMetadata struct {
	Title      string
	Abstract   string
	Authors    string
	Year       int
	Confidence float64
}

const metadataSystemPrompt = `You are an expert academic paper parser. Extract the title, abstract, authors, and publication year from the beginning of an academic paper.

Instructions:
1. The title is typically at the very beginning, often on its own line
2. The abstract usually appears after the title and author block, often labeled "Abstract"
3. Extract the COMPLETE abstract, not just the first sentence
4. Authors should be a single comma-separated string in paper order
5. If the year is not stated, omit it
6. Provide a confidence score (0.0 to 1.0) for the extraction

Respond with a single JSON object with keys "title", "abstract", "authors", "year", "confidence". No commentary, no markdown fences.`

// metadataSampleBytes bounds how much of the paper is sent for extraction.
// Title, authors, and abstract live in the front matter.
const metadataSampleBytes = 8000

// MetadataExtractor extracts document metadata via the generation service.
type MetadataExtractor struct {
	generator Generator
}

// NewMetadataExtractor creates a new metadata extractor.
func NewMetadataExtractor(generator Generator) *MetadataExtractor {
	return &MetadataExtractor{generator: generator}
}

// ExtractPaperMetadata asks the generation service for paper metadata as a JSON
// object. The generation call failing is an error; a malformed response is not,
// it just leaves unparseable fields at their zero values.
func (e *MetadataExtractor) ExtractPaperMetadata(ctx context.Context, text string) (PaperMetadata, error) {
	logger := contextutil.LoggerFromContext(ctx)

	sample := truncateUTF8(text, metadataSampleBytes)
	userPrompt := fmt.Sprintf("Extract the metadata from this paper:\n\n%s", sample)
	response, err := e.generator.Generate(ctx, metadataSystemPrompt, userPrompt)
	if err != nil {
		return PaperMetadata{}, fmt.Errorf("metadata extraction failed: %w", err)
	}

	meta, ok := parsePaperMetadata(response)
	if !ok {
		logger.WarnContext(ctx, "could not parse metadata response", "response_length", len(response))
	}
	return meta, nil
}

// parsePaperMetadata pulls whatever well-typed fields it can out of a
// generation response. The bool result reports whether a JSON object was found
// at all.
func parsePaperMetadata(response string) (PaperMetadata, bool) {
	block, ok := ExtractJSONBlock(response, '{', '}')
	if !ok {
		return PaperMetadata{}, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return PaperMetadata{}, false
	}

	var meta PaperMetadata
	if title, ok := raw["title"].(string); ok {
		meta.Title = strings.TrimSpace(title)
	}
	if abstract, ok := raw["abstract"].(string); ok {
		meta.Abstract = strings.TrimSpace(abstract)
	}
	if authors, ok := raw["authors"].(string); ok {
		meta.Authors = strings.TrimSpace(authors)
	}
	switch year := raw["year"].(type) {
	case float64:
		meta.Year = int(year)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
			meta.Year = parsed
		}
	}
	if confidence, ok := raw["confidence"].(float64); ok {
		meta.Confidence = confidence
	}

	return meta, true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
