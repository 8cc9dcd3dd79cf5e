package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SectionsFromMarkdown derives sections from markdown headings, so indexing a
// note does not need a generation call the way a paper does. Each heading
// opens a section running to the start of the next heading (any level) or the
// end of the document. Content before the first heading gets an untitled
// section. A document with no headings returns no sections; the caller falls
// back to whole-document chunking.
func SectionsFromMarkdown(content string) []Section {
	source := []byte(content)
	parser := goldmark.New()
	doc := parser.Parser().Parse(text.NewReader(source))

	type headingMark struct {
		title string
		start int
	}
	var marks []headingMark

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}

		seg := heading.Lines().At(0)
		// The segment covers the heading text after the hash markers; back up
		// to the start of the line so the section range includes the marker.
		start := seg.Start
		for start > 0 && source[start-1] != '\n' {
			start--
		}

		marks = append(marks, headingMark{
			title: headingText(heading, source),
			start: start,
		})
		return ast.WalkContinue, nil
	})

	if len(marks) == 0 {
		return nil
	}

	var sections []Section
	if marks[0].start > 0 {
		sections = append(sections, Section{Title: "", Start: 0, End: marks[0].start})
	}
	for i, mark := range marks {
		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		if mark.start >= end {
			continue
		}
		sections = append(sections, Section{Title: mark.title, Start: mark.start, End: end})
	}
	return sections
}

// headingText extracts the plain text of a heading node.
func headingText(heading *ast.Heading, source []byte) string {
	var builder strings.Builder
	_ = ast.Walk(heading, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(source))
		case *ast.String:
			builder.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(builder.String())
}
