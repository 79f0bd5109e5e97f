package worklist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a named worklist does not exist.
var ErrNotFound = errors.New("worklist not found")

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Summary describes a stored worklist.
type Summary struct {
	Name      string
	Site      string
	Count     int
	UpdatedAt time.Time
}

// Store keeps named worklists in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("worklist: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("worklist: open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("worklist: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("worklist: migration: %w", err)
	}
	log.Debugf("Opened worklist store %s", path)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS worklists (
			name       TEXT PRIMARY KEY,
			site       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS worklist_titles (
			list      TEXT    NOT NULL REFERENCES worklists(name) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			namespace INTEGER NOT NULL,
			page_name TEXT    NOT NULL,
			PRIMARY KEY (list, position)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the worklist called name with the contents of c.
func (s *Store) Save(ctx context.Context, name string, c *collection.Collection[title.Title]) error {
	if name == "" {
		return fmt.Errorf("worklist: empty name")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("worklist: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO worklists (name, site, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET site = excluded.site, updated_at = excluded.updated_at`,
		name, c.Site().Name, now); err != nil {
		return fmt.Errorf("worklist: save %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM worklist_titles WHERE list = ?`, name); err != nil {
		return fmt.Errorf("worklist: clear %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO worklist_titles (list, position, namespace, page_name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("worklist: prepare: %w", err)
	}
	defer stmt.Close()
	for i, t := range c.All() {
		if _, err := stmt.ExecContext(ctx, name, i, t.Namespace().ID, t.PageName()); err != nil {
			return fmt.Errorf("worklist: save %s title %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("worklist: commit %s: %w", name, err)
	}
	log.Debugf("Saved worklist %q with %d titles", name, c.Len())
	return nil
}

// Load reads the worklist called name for s.
func (s *Store) Load(ctx context.Context, name string, st *site.Site) (*collection.Collection[title.Title], error) {
	var siteName string
	err := s.db.QueryRowContext(ctx, `SELECT site FROM worklists WHERE name = ?`, name).Scan(&siteName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("worklist: load %s: %w", name, err)
	}
	if siteName != st.Name {
		log.Warnf("Worklist %q was saved for site %q, loading it for %q", name, siteName, st.Name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, page_name FROM worklist_titles WHERE list = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("worklist: load %s: %w", name, err)
	}
	defer rows.Close()

	c := collection.New[title.Title](st)
	for rows.Next() {
		var w title.Wire
		if err := rows.Scan(&w.Namespace, &w.PageName); err != nil {
			return nil, fmt.Errorf("worklist: scan %s: %w", name, err)
		}
		ft, err := title.FromWire(st, w)
		if err != nil {
			return nil, fmt.Errorf("worklist: %s: %w", name, err)
		}
		c.Add(ft.Title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("worklist: load %s: %w", name, err)
	}
	return c, nil
}

// List returns every stored worklist, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.name, w.site, w.updated_at, COUNT(t.position)
		FROM worklists w LEFT JOIN worklist_titles t ON t.list = w.name
		GROUP BY w.name
		ORDER BY w.updated_at DESC, w.name`)
	if err != nil {
		return nil, fmt.Errorf("worklist: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.Name, &sum.Site, &updated, &sum.Count); err != nil {
			return nil, fmt.Errorf("worklist: list: %w", err)
		}
		sum.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the worklist called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM worklist_titles WHERE list = ?`, name); err != nil {
		return fmt.Errorf("worklist: delete %s: %w", name, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM worklists WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("worklist: delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
