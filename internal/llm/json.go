package llm

import "strings"

// StripCodeFences removes a surrounding markdown code fence from a generation
// response, if present. Models frequently wrap JSON output in ```json blocks
// despite instructions not to.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ExtractJSONBlock returns the substring of s spanning the first occurrence of
// open through the last occurrence of close. It is a tolerant way to pull a
// JSON value out of a response that surrounds it with prose.
func ExtractJSONBlock(s string, open, close byte) (string, bool) {
	s = StripCodeFences(s)
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
