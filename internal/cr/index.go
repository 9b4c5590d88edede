package cr

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/vchain/internal/chain"
)

const (
	indexMarkdown = "INDEX.md"
	indexDB       = "index.db"
)

// indexSchema is executed on every open; IF NOT EXISTS keeps it idempotent.
const indexSchema = `
CREATE TABLE IF NOT EXISTS change_requests (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    origin_doc  TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created     TEXT NOT NULL,
    updated     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS change_requests_status ON change_requests(status);
`

// Index is the SQLite summary index of a store.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (or creates) the SQLite index at path in WAL mode.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// pooled connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout=5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("index: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Replace swaps the index contents for summaries in one transaction.
func (x *Index) Replace(ctx context.Context, summaries []Summary) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM change_requests"); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO change_requests (id, status, origin_doc, description, created, updated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		if _, err := stmt.ExecContext(ctx, s.ID, string(s.Status), string(s.OriginDoc), s.Description,
			s.Created.UTC().Format(time.RFC3339Nano), s.Updated.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("index: insert %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// ByStatus returns the indexed summaries with the given status sorted by
// id. An empty status returns every row.
func (x *Index) ByStatus(ctx context.Context, status Status) ([]Summary, error) {
	q := "SELECT id, status, origin_doc, description, created, updated FROM change_requests"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY id"

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var st, origin, created, updated string
		if err := rows.Scan(&s.ID, &st, &origin, &s.Description, &created, &updated); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		s.Status = Status(st)
		s.OriginDoc = chain.DocType(origin)
		if s.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("index: row %s: parsing created: %w", s.ID, err)
		}
		if s.Updated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("index: row %s: parsing updated: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// renderIndex renders the Markdown summary table.
func renderIndex(summaries []Summary) string {
	var b strings.Builder
	b.WriteString("# Change requests\n\n")
	b.WriteString("| ID | Status | Origin | Created | Updated | Description |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			s.ID, s.Status, s.OriginDoc, formatTime(s.Created), formatTime(s.Updated), cell(firstLine(s.Description)))
	}
	return b.String()
}

// writeAtomic writes data to path via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
