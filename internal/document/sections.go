package document

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/darshan-sc/lab-assistant/internal/contextutil"
	"github.com/darshan-sc/lab-assistant/internal/llm"
)

// Section is a model-estimated structural region of a document (e.g. "Methods").
// Title is empty for the whole-document fallback. Start and End are approximate
// byte offsets into the document text; sections may overlap or leave gaps and
// downstream consumers must treat them as hints, not ground truth.
type Section struct {
	Title string
	Start int
	End   int
}

// sectionSampleBytes bounds how much of the document is sent to the generation
// service when asking for a structural outline.
const sectionSampleBytes = 8000

const sectionSystemPrompt = `You are an expert academic paper parser. Identify the structural sections of the paper (Abstract, Introduction, Methods, Results, Discussion, References, etc.).

For each section report its title and the approximate character offset where it starts in the given text. Offsets are estimates; do not agonize over exactness.

Respond with a single JSON array of objects with keys "title" (string) and "start" (number), in document order. Optionally include "end". No commentary, no markdown fences.`

// SectionParser asks the generation service for a structural outline of a
// document, falling back to a single whole-document section when the response
// cannot be used.
type SectionParser struct {
	generator llm.Generator
}

// NewSectionParser creates a new section parser.
func NewSectionParser(generator llm.Generator) *SectionParser {
	return &SectionParser{generator: generator}
}

// ParseSections returns the model-estimated sections of text. The bool result
// reports whether the whole-document fallback was used. The fallback covers
// every failure mode: generation error, non-JSON response, and a response with
// no usable entries. ParseSections never returns an error; section structure
// is a best-effort hint.
func (p *SectionParser) ParseSections(ctx context.Context, text string) ([]Section, bool) {
	logger := contextutil.LoggerFromContext(ctx)
	fallback := []Section{{Title: "", Start: 0, End: len(text)}}

	if len(text) == 0 {
		return fallback, true
	}

	sample := truncateUTF8(text, sectionSampleBytes)
	userPrompt := fmt.Sprintf("Identify the sections of this paper:\n\n%s", sample)

	response, err := p.generator.Generate(ctx, sectionSystemPrompt, userPrompt)
	if err != nil {
		logger.WarnContext(ctx, "section parse generation failed, using whole-document fallback", "error", err)
		return fallback, true
	}

	sections, ok := parseSectionsResponse(response, len(text))
	if !ok {
		logger.WarnContext(ctx, "malformed section response, using whole-document fallback", "response_length", len(response))
		return fallback, true
	}
	return sections, false
}

// parseSectionsResponse validates a generation response into sections. Each
// entry needs a non-empty title and a numeric start; a missing or non-numeric
// end defaults to docLen. Entries that fail validation are dropped; an empty
// result counts as a parse failure.
func parseSectionsResponse(response string, docLen int) ([]Section, bool) {
	block, ok := llm.ExtractJSONBlock(response, '[', ']')
	if !ok {
		return nil, false
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, false
	}

	sections := make([]Section, 0, len(raw))
	for _, entry := range raw {
		title, ok := entry["title"].(string)
		if !ok || title == "" {
			continue
		}
		start, ok := entry["start"].(float64)
		if !ok {
			continue
		}

		end := float64(docLen)
		if rawEnd, ok := entry["end"].(float64); ok {
			end = rawEnd
		}

		section := Section{Title: title, Start: int(start), End: int(end)}
		if section.Start < 0 {
			section.Start = 0
		}
		if section.End > docLen {
			section.End = docLen
		}
		if section.Start >= section.End {
			continue
		}
		sections = append(sections, section)
	}

	if len(sections) == 0 {
		return nil, false
	}
	return sections, true
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
