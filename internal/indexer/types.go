package indexer

import (
	"errors"

	"github.com/darshan-sc/lab-assistant/internal/document"
	"github.com/darshan-sc/lab-assistant/internal/storage"
)

// ErrNoContent is returned when a source has no text to index.
var ErrNoContent = errors.New("no content to index")

// Candidate is a chunk produced by the chunker before embedding and
// persistence: trimmed content plus the section title and byte range it was
// cut from.
type Candidate struct {
	Content      string
	SectionTitle string
	CharStart    int
	CharEnd      int
}

// Source is the minimal value object the pipeline indexes: ownership
// identifiers, denormalized document metadata, the full text, and an optional
// page table. Callers build it from a stored record; the pipeline never holds
// a live database row.
type Source struct {
	Type      storage.SourceType
	ID        int64
	UserID    int64
	ProjectID int64
	Title     string
	Authors   string
	Year      int
	Text      string
	Pages     []document.Page
	// Markdown derives sections from headings instead of asking the
	// generation service for an outline.
	Markdown bool
}
