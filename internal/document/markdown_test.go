package document

import (
	"strings"
	"testing"
)

func TestSectionsFromMarkdown(t *testing.T) {
	content := "Preamble before any heading.\n\n# Overview\n\nSome overview text.\n\n## Details\n\nMore text here.\n"

	sections := SectionsFromMarkdown(content)
	if len(sections) != 3 {
		t.Fatalf("SectionsFromMarkdown() returned %d sections, want 3: %+v", len(sections), sections)
	}

	if sections[0].Title != "" || sections[0].Start != 0 {
		t.Errorf("preamble section = %+v, want untitled at 0", sections[0])
	}
	if sections[1].Title != "Overview" {
		t.Errorf("section 1 title = %q, want Overview", sections[1].Title)
	}
	if sections[2].Title != "Details" {
		t.Errorf("section 2 title = %q, want Details", sections[2].Title)
	}

	// Section starts must land on the heading markers in the source.
	if !strings.HasPrefix(content[sections[1].Start:], "# Overview") {
		t.Errorf("section 1 start %d does not point at heading", sections[1].Start)
	}
	if !strings.HasPrefix(content[sections[2].Start:], "## Details") {
		t.Errorf("section 2 start %d does not point at heading", sections[2].Start)
	}

	// Ranges tile the document without gaps.
	if sections[0].End != sections[1].Start {
		t.Errorf("gap between preamble end %d and first heading %d", sections[0].End, sections[1].Start)
	}
	if sections[1].End != sections[2].Start {
		t.Errorf("gap between section ends %d and %d", sections[1].End, sections[2].Start)
	}
	if sections[2].End != len(content) {
		t.Errorf("last section end = %d, want %d", sections[2].End, len(content))
	}
}

func TestSectionsFromMarkdown_HeadingFirst(t *testing.T) {
	content := "# Title\n\nBody text.\n"

	sections := SectionsFromMarkdown(content)
	if len(sections) != 1 {
		t.Fatalf("SectionsFromMarkdown() returned %d sections, want 1", len(sections))
	}
	if sections[0].Title != "Title" || sections[0].Start != 0 || sections[0].End != len(content) {
		t.Errorf("section = %+v", sections[0])
	}
}

func TestSectionsFromMarkdown_NoHeadings(t *testing.T) {
	if sections := SectionsFromMarkdown("Just a plain paragraph.\n\nAnother one.\n"); sections != nil {
		t.Errorf("SectionsFromMarkdown() = %+v, want nil for heading-free content", sections)
	}
}

func TestSectionsFromMarkdown_Empty(t *testing.T) {
	if sections := SectionsFromMarkdown(""); sections != nil {
		t.Errorf("SectionsFromMarkdown(\"\") = %+v, want nil", sections)
	}
}
