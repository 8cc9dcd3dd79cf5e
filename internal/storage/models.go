package storage

import "time"

// SourceType identifies which kind of entity a chunk was indexed from.
type SourceType string

const (
	SourcePaper      SourceType = "paper"
	SourceNote       SourceType = "note"
	SourceExperiment SourceType = "experiment"
	SourceRun        SourceType = "run"
)

// PaperRecord represents an uploaded paper in the database.
// PagesJSON holds the serialized page table (page number, text, char_start)
// produced at ingestion; empty when the paper was ingested as plain text.
type PaperRecord struct {
	ID        int64
	UserID    int64
	ProjectID int64
	Title     string
	Abstract  string
	Authors   string
	Year      int
	FullText  string
	PagesJSON string
	CreatedAt time.Time
}

// NoteRecord represents a research note in the database.
type NoteRecord struct {
	ID        int64
	UserID    int64
	ProjectID int64
	PaperID   int64
	Title     string
	Content   string
	CreatedAt time.Time
}

// ExperimentRecord represents an experiment in the database.
type ExperimentRecord struct {
	ID        int64
	UserID    int64
	ProjectID int64
	Title     string
	Protocol  string
	Results   string
	CreatedAt time.Time
}

// ChunkRecord is the atomic retrieval unit: a bounded span of source text with
// its embedding provenance. The ID doubles as the vector point id. PageStart
// and PageEnd are 0 when the source has no page table. DocTitle, DocAuthors
// and DocYear are denormalized from the source so citations can be rendered
// without re-joining to the source row.
type ChunkRecord struct {
	ID           string
	UserID       int64
	ProjectID    int64
	SourceType   SourceType
	SourceID     int64
	ChunkIndex   int
	SectionTitle string
	CharStart    int
	CharEnd      int
	PageStart    int
	PageEnd      int
	DocTitle     string
	DocAuthors   string
	DocYear      int
	Content      string
}
