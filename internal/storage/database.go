package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			project_id INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			full_text TEXT NOT NULL DEFAULT '',
			pages_json TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			project_id INTEGER NOT NULL DEFAULT 0,
			paper_id INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS experiments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			project_id INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			protocol TEXT NOT NULL DEFAULT '',
			results TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			project_id INTEGER NOT NULL DEFAULT 0,
			source_type TEXT NOT NULL,
			source_id INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			section_title TEXT NOT NULL DEFAULT '',
			char_start INTEGER NOT NULL,
			char_end INTEGER NOT NULL,
			page_start INTEGER NOT NULL DEFAULT 0,
			page_end INTEGER NOT NULL DEFAULT 0,
			doc_title TEXT NOT NULL DEFAULT '',
			doc_authors TEXT NOT NULL DEFAULT '',
			doc_year INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_type, source_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_user ON chunks(user_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
