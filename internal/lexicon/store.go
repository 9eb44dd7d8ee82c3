package lexicon

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store persists a word corpus in SQLite so large frequency lists are
// imported once and reloaded quickly.
type Store struct {
	db *sql.DB
}

// Open opens or creates the corpus database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps an in-memory database alive across queries
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS words (
			term TEXT PRIMARY KEY,
			count INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Import adds the frequency list read from r to the corpus. Counts of terms
// already present are summed. It returns the number of lines imported.
func (s *Store) Import(ctx context.Context, r io.Reader) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO words (term, count) VALUES (?, ?)
		 ON CONFLICT(term) DO UPDATE SET count = count + excluded.count`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	err = scanCounts(r, func(term string, count int64) error {
		if count <= 0 {
			return nil
		}
		if _, err := stmt.ExecContext(ctx, strings.ToLower(term), count); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of distinct terms in the corpus.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Dictionary loads the whole corpus into memory.
func (s *Store) Dictionary(ctx context.Context) (*Dictionary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, count FROM words`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var term string
		var count int64
		if err := rows.Scan(&term, &count); err != nil {
			return nil, err
		}
		counts[term] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewDictionary(counts), nil
}
