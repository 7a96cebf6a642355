package resolve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

// AuthorityEntry pins a name and label to a curated identifier.
type AuthorityEntry struct {
	Name  string       `yaml:"name"`
	Label models.Label `yaml:"label"`
	URI   string       `yaml:"uri"`
}

// AuthorityResolver looks identifiers up in a SQLite authority table.
type AuthorityResolver struct {
	db *sql.DB
}

// OpenAuthority opens (and creates if needed) the authority database at path.
// Use ":memory:" for a throwaway database.
func OpenAuthority(ctx context.Context, path string) (*AuthorityResolver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open authority db: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS authority (
	name TEXT NOT NULL,
	label TEXT NOT NULL,
	uri TEXT NOT NULL,
	PRIMARY KEY(name, label)
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init authority schema: %w", err)
	}
	return &AuthorityResolver{db: db}, nil
}

// Close closes the database.
func (a *AuthorityResolver) Close() error {
	return a.db.Close()
}

// Resolve implements Resolver.
func (a *AuthorityResolver) Resolve(ctx context.Context, term string, label models.Label) (string, error) {
	var uri string
	err := a.db.QueryRowContext(ctx,
		`SELECT uri FROM authority WHERE name = ? AND label = ?`,
		models.NormalizeTerm(term), string(label),
	).Scan(&uri)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("authority lookup: %w", err)
	}
	return uri, nil
}

// Import upserts entries in one transaction and returns how many were written.
func (a *AuthorityResolver) Import(ctx context.Context, entries []AuthorityEntry) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO authority (name, label, uri) VALUES (?, ?, ?)
ON CONFLICT(name, label) DO UPDATE SET uri = excluded.uri`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if e.Name == "" || e.URI == "" {
			return 0, fmt.Errorf("entry %d: name and uri are required", i+1)
		}
		label, ok := models.ParseLabel(string(e.Label))
		if !ok {
			return 0, fmt.Errorf("entry %d (%s): unknown label %q", i+1, e.Name, e.Label)
		}
		if _, err := stmt.ExecContext(ctx, models.NormalizeTerm(e.Name), string(label), e.URI); err != nil {
			return 0, fmt.Errorf("import %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(entries), nil
}

// DecodeAuthority reads a YAML list of authority entries.
func DecodeAuthority(r io.Reader) ([]AuthorityEntry, error) {
	var doc struct {
		Entries []AuthorityEntry `yaml:"entries"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode authority file: %w", err)
	}
	return doc.Entries, nil
}
