package document

import "strings"

// Page is one page of a source document. CharStart is the byte offset of the
// page's first character within the full concatenated document text. Pages are
// produced in order with strictly increasing CharStart.
type Page struct {
	Number    int    `json:"page"`
	Text      string `json:"text"`
	CharStart int    `json:"char_start"`
}

// BuildPageTable assigns char-start offsets to ordered page texts. Pages are
// joined by a single newline in the concatenated document text, so each page
// starts one byte past the end of the previous page's text.
func BuildPageTable(texts []string) []Page {
	pages := make([]Page, 0, len(texts))
	offset := 0
	for i, text := range texts {
		pages = append(pages, Page{
			Number:    i + 1,
			Text:      text,
			CharStart: offset,
		})
		offset += len(text) + 1
	}
	return pages
}

// JoinPages returns the concatenated document text whose offsets match a page
// table built by BuildPageTable.
func JoinPages(pages []Page) string {
	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}
	return strings.Join(texts, "\n")
}

// PageForOffset maps a byte offset in the concatenated document text to the
// 1-indexed page containing it. A page's range is [CharStart, CharStart+len(Text)),
// so an offset exactly at a page's CharStart belongs to that later page, not
// the one before it. Offsets beyond the last page clamp to the last page's
// number. An empty page table returns 1.
func PageForOffset(offset int, pages []Page) int {
	if len(pages) == 0 {
		return 1
	}
	for _, page := range pages {
		if offset >= page.CharStart && offset < page.CharStart+len(page.Text) {
			return page.Number
		}
	}
	return pages[len(pages)-1].Number
}
