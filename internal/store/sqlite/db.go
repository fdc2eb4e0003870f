package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// A single writer goroutine owns all mutations; one connection avoids
	// SQLITE_BUSY churn from the pool.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates the two document collections. Idempotent.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Direct-message sequences keyed by canonical pair-key.
		`CREATE TABLE IF NOT EXISTS direct_conversations (
			pair_key TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Group directory entry plus group messages, one document per group.
		`CREATE TABLE IF NOT EXISTS group_conversations (
			name TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
