package rag

// AskRequest is a grounded question bound to a scope. UserID is mandatory;
// ProjectID, SourceType, and SourceID narrow the search when non-zero.
type AskRequest struct {
	Question   string `json:"question"`
	UserID     int64  `json:"user_id"`
	ProjectID  int64  `json:"project_id,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	SourceID   int64  `json:"source_id,omitempty"`
	// K overrides the configured final result count when positive.
	K int `json:"k,omitempty"`
}

// Citation points a quoted passage back at its exact location in a source
// document.
type Citation struct {
	ChunkID      string `json:"chunk_id"`
	SourceType   string `json:"source_type"`
	SourceID     int64  `json:"source_id"`
	DocTitle     string `json:"doc_title"`
	DocAuthors   string `json:"doc_authors,omitempty"`
	DocYear      int    `json:"doc_year,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	// Pages is "N" for single-page chunks and "N-M" when a chunk spans
	// pages; empty when the source has no page table.
	Pages   string `json:"pages,omitempty"`
	Snippet string `json:"snippet"`
}

// AskResponse is a composed answer with the citations that ground it.
type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}
