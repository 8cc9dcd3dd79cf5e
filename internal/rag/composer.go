package rag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/darshan-sc/lab-assistant/internal/llm"
)

// notFoundAnswer is returned when retrieval produced nothing to ground an
// answer on. No generation call is made in that case.
const notFoundAnswer = "I could not find anything in your sources that addresses this question. Try rephrasing it, or index more material first."

// snippetMaxBytes bounds fallback citation snippets cut from chunk content.
const snippetMaxBytes = 300

const composerSystemPrompt = `You are a careful research assistant. Answer the question using ONLY the numbered context passages provided. Rules:

1. If the context does not contain the answer, say so explicitly. Never guess or use outside knowledge.
2. Do NOT put citation numbers like [1] inside your prose.
3. Structure your response exactly like this:

ANSWER: <your answer in plain prose>

QUOTES USED:
[1]: "<the exact quote from passage 1 you relied on>"
[3]: "<the exact quote from passage 3 you relied on>"

List a quote only for passages you actually used.`

// quotePattern matches `[n]: "quote"` lines in either quote style.
var quotePattern = regexp.MustCompile(`\[(\d+)\]\s*:\s*(?:"([^"]*)"|'([^']*)')`)

// quotesMarker splits prose from the quote list, tolerating case drift.
var quotesMarker = regexp.MustCompile(`(?i)QUOTES\s+USED\s*:?`)

// answerPrefix strips a leading ANSWER: label off the prose.
var answerPrefix = regexp.MustCompile(`(?i)^\s*ANSWER\s*:?\s*`)

// Composer turns ranked chunks into a grounded answer with per-chunk
// citations.
type Composer struct {
	generator llm.Generator
}

// NewComposer creates a composer backed by the given generator.
func NewComposer(generator llm.Generator) *Composer {
	return &Composer{generator: generator}
}

// Compose generates an answer from the ranked chunks. Chunks are numbered
// 1..N in the order given and that numbering is what the returned citations
// carry; callers must not reorder afterward.
func (c *Composer) Compose(ctx context.Context, question string, chunks []ScoredChunk) (AskResponse, error) {
	if len(chunks) == 0 {
		return AskResponse{Answer: notFoundAnswer, Citations: []Citation{}}, nil
	}

	response, err := c.generator.Generate(ctx, composerSystemPrompt, buildUserPrompt(question, chunks))
	if err != nil {
		return AskResponse{}, fmt.Errorf("answer generation failed: %w", err)
	}

	answer, quotes := parseComposerResponse(response)

	citations := make([]Citation, len(chunks))
	for i, scored := range chunks {
		chunk := scored.Chunk
		snippet, ok := quotes[i+1]
		if !ok || snippet == "" {
			snippet = truncateSnippet(chunk.Content)
		}
		citations[i] = Citation{
			ChunkID:      chunk.ID,
			SourceType:   string(chunk.SourceType),
			SourceID:     chunk.SourceID,
			DocTitle:     chunk.DocTitle,
			DocAuthors:   chunk.DocAuthors,
			DocYear:      chunk.DocYear,
			SectionTitle: chunk.SectionTitle,
			Pages:        formatPageRange(chunk.PageStart, chunk.PageEnd),
			Snippet:      snippet,
		}
	}

	return AskResponse{Answer: answer, Citations: citations}, nil
}

// buildUserPrompt renders the context block the citation numbers refer to.
func buildUserPrompt(question string, chunks []ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Context passages:\n\n")
	for i, scored := range chunks {
		chunk := scored.Chunk
		fmt.Fprintf(&sb, "[%d]", i+1)
		if chunk.DocTitle != "" {
			fmt.Fprintf(&sb, " %s", chunk.DocTitle)
		}
		fmt.Fprintf(&sb, " (%s", chunk.SourceType)
		if pages := formatPageRange(chunk.PageStart, chunk.PageEnd); pages != "" {
			fmt.Fprintf(&sb, ", p. %s", pages)
		}
		if chunk.SectionTitle != "" {
			fmt.Fprintf(&sb, ", section %q", chunk.SectionTitle)
		}
		sb.WriteString(")\n")
		sb.WriteString(chunk.Content)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}

// parseComposerResponse splits a generation response into prose and a
// citation-number-to-quote map. Format drift never errors; at worst the whole
// response is the answer and no quotes are extracted.
func parseComposerResponse(response string) (string, map[int]string) {
	prose := response
	quoteSection := ""
	if loc := quotesMarker.FindStringIndex(response); loc != nil {
		prose = response[:loc[0]]
		quoteSection = response[loc[1]:]
	}
	prose = strings.TrimSpace(answerPrefix.ReplaceAllString(prose, ""))

	quotes := make(map[int]string)
	for _, match := range quotePattern.FindAllStringSubmatch(quoteSection, -1) {
		number, err := strconv.Atoi(match[1])
		if err != nil || number < 1 {
			continue
		}
		quote := match[2]
		if quote == "" {
			quote = match[3]
		}
		if quote != "" {
			quotes[number] = quote
		}
	}
	return prose, quotes
}

// formatPageRange renders "N" or "N-M", or "" when the source had no pages.
func formatPageRange(start, end int) string {
	if start <= 0 {
		return ""
	}
	if end <= start {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

// truncateSnippet cuts chunk content down to a preview without splitting a
// rune.
func truncateSnippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetMaxBytes {
		return content
	}
	cut := content[:snippetMaxBytes]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
