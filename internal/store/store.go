// Package store persists fragment catalogs and resolved relocations in a
// sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/fragtool/internal/reloc"
	"github.com/retroenv/retrogolib/log"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
)

// Memory is the path of a transient in-memory database.
const Memory = ":memory:"

// ErrNotFound is returned when no fragment with the requested number exists.
var ErrNotFound = errors.New("fragment not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scans(id text primary key, pcode text, file text, size int, created timestamp);`,
	`CREATE TABLE IF NOT EXISTS frags(scan_id text, pcode text, addr int, num int, entrypoint int,
		offset_code int, offset_relocs int, romsize int, ramsize int, vma int);`,
	`CREATE TABLE IF NOT EXISTS relocs(scan_id text, pcode text, fragnum int, idx int, far int, type text,
		addr int, target_addr int, target_frag int);`,
	`CREATE INDEX IF NOT EXISTS frags_num ON frags(scan_id, num);`,
	`CREATE INDEX IF NOT EXISTS relocs_frag ON relocs(scan_id, fragnum);`,
}

// Scan describes one scanned image.
type Scan struct {
	ID          string
	ProductCode string
	File        string
	Size        int
	Created     time.Time
}

// Store is a fragment database.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens or creates the database at the given path and makes sure that
// all tables exist.
func Open(ctx context.Context, logger *log.Logger, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// every connection to :memory: would get its own database
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating database schema: %w", err)
		}
	}

	logger.Debug("Opened fragment database", log.String("path", path))
	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// AddScan stores the scanned image and its catalog in a single transaction
// and returns the generated scan id. The ID and Created fields of the scan
// are ignored.
func (s *Store) AddScan(ctx context.Context, scan Scan, catalog fragment.Catalog) (string, error) {
	id := uuid.NewString()

	err := s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scans(id, pcode, file, size, created) VALUES (?, ?, ?, ?, ?);`,
			id, scan.ProductCode, scan.File, scan.Size, time.Now().UTC()); err != nil {
			return fmt.Errorf("inserting scan: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO frags(scan_id, pcode, addr, num, entrypoint, offset_code, offset_relocs, romsize, ramsize, vma)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return fmt.Errorf("preparing fragment insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range catalog {
			if _, err := stmt.ExecContext(ctx, id, e.ProductCode, e.Offset, e.Number, e.EntryPoint,
				e.CodeOffset, e.RelocOffset, e.ROMSize, e.RAMSize, e.Segment); err != nil {
				return fmt.Errorf("inserting fragment %d: %w", e.Number, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Stored scan",
		log.String("id", id),
		log.String("file", scan.File),
		log.Int("fragments", len(catalog)))
	return id, nil
}

// AddRelocations stores the resolved relocations of a fragment.
func (s *Store) AddRelocations(ctx context.Context, scanID string, entry fragment.Entry, resolved []reloc.Resolved) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO relocs(scan_id, pcode, fragnum, idx, far, type, addr, target_addr, target_frag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`)
		if err != nil {
			return fmt.Errorf("preparing relocation insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range resolved {
			if _, err := stmt.ExecContext(ctx, scanID, entry.ProductCode, entry.Number, r.Index, r.Foreign,
				r.Kind.String(), r.LocalAddress, r.Address, r.Target.Number()); err != nil {
				return fmt.Errorf("inserting relocation %d of fragment %d: %w", r.Index, entry.Number, err)
			}
		}
		return nil
	})
}

// Scans returns all scans of the database in insertion order.
func (s *Store) Scans(ctx context.Context) ([]Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pcode, file, size, created FROM scans ORDER BY rowid;`)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scans []Scan
	for rows.Next() {
		var scan Scan
		if err := rows.Scan(&scan.ID, &scan.ProductCode, &scan.File, &scan.Size, &scan.Created); err != nil {
			return nil, fmt.Errorf("reading scan: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scans: %w", err)
	}
	return scans, nil
}

const fragmentColumns = `pcode, addr, num, entrypoint, offset_code, offset_relocs, romsize, ramsize, vma`

// Fragment returns the first stored fragment of the scan with the given
// number.
func (s *Store) Fragment(ctx context.Context, scanID string, number int) (fragment.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fragmentColumns+` FROM frags WHERE scan_id = ? AND num = ? ORDER BY rowid LIMIT 1;`,
		scanID, number)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fragment.Entry{}, fmt.Errorf("fragment %d: %w", number, ErrNotFound)
	}
	if err != nil {
		return fragment.Entry{}, fmt.Errorf("querying fragment %d: %w", number, err)
	}
	return e, nil
}

// Fragments returns all fragments of the scan ordered by number and offset.
func (s *Store) Fragments(ctx context.Context, scanID string) ([]fragment.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM frags WHERE scan_id = ? ORDER BY num, addr;`,
		scanID)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []fragment.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("reading fragment: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}
	return entries, nil
}

// Dependencies returns the distinct fragment numbers that the stored
// relocations of a fragment refer to, excluding the fragment itself and
// relocations of unknown kind.
func (s *Store) Dependencies(ctx context.Context, scanID string, number int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT target_frag FROM relocs
		WHERE scan_id = ? AND fragnum = ? AND type != 'unknown' AND target_frag >= 0 AND target_frag != fragnum
		ORDER BY target_frag;`,
		scanID, number)
	if err != nil {
		return nil, fmt.Errorf("querying dependencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	deps := []int{}
	for rows.Next() {
		var dep int
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("reading dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependencies: %w", err)
	}
	return deps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (fragment.Entry, error) {
	var e fragment.Entry
	err := row.Scan(&e.ProductCode, &e.Offset, &e.Number, &e.EntryPoint,
		&e.CodeOffset, &e.RelocOffset, &e.ROMSize, &e.RAMSize, &e.Segment)
	return e, err //nolint:wrapcheck // wrapped by the callers
}

func (s *Store) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
