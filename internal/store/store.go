// Package store persists fuzz campaigns and their corpora behind
// database/sql, picking a driver from the DSN's scheme so a campaign can
// be logged to whatever database the caller already runs (§1.2, §6
// "-store DSN").
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/fewrick/jpamb/internal/interp"
	"github.com/pkg/errors"
)

// Store wraps a *sql.DB holding campaign and corpus tables.
type Store struct {
	db     *sql.DB
	driver string
}

// rebind rewrites a query written with $1, $2, ... placeholders into the
// driver's native placeholder style: sqlite and mysql both want plain
// "?", postgres and sqlserver keep the numbered form.
func (s *Store) rebind(query string) string {
	if s.driver == "sqlite" || s.driver == "sqlite3" || s.driver == "mysql" {
		var b strings.Builder
		for i := 0; i < len(query); i++ {
			if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				j := i + 1
				for j < len(query) && query[j] >= '0' && query[j] <= '9' {
					j++
				}
				b.WriteByte('?')
				i = j - 1
				continue
			}
			b.WriteByte(query[i])
		}
		return b.String()
	}
	return query
}

// driverFor maps a DSN scheme to a registered database/sql driver name
// and the DSN database/sql itself expects (scheme stripped).
func driverFor(dsn string) (driver, rest string, err error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "", "", errors.Errorf("store: dsn %q has no scheme (want scheme://...)", dsn)
	}
	switch scheme {
	case "sqlite":
		return "sqlite", rest, nil // modernc.org/sqlite, pure Go
	case "sqlite3":
		return "sqlite3", rest, nil // mattn/go-sqlite3, cgo
	case "postgres", "postgresql":
		return "postgres", rest, nil
	case "mysql":
		return "mysql", rest, nil
	case "sqlserver":
		return "sqlserver", dsn, nil // the mssql driver wants the full URL back
	default:
		return "", "", errors.Errorf("store: unsupported dsn scheme %q", scheme)
	}
}

// Open connects to the backend named by dsn's scheme and ensures the
// schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	driver, rest, err := driverFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, rest)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "store: ping %s", driver)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			method TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NULL,
			total_offsets INTEGER NOT NULL DEFAULT 0,
			covered_offsets INTEGER NOT NULL DEFAULT 0,
			iterations INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS corpus_entries (
			campaign_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			args TEXT NOT NULL,
			outcome TEXT NOT NULL,
			new_coverage BOOLEAN NOT NULL,
			PRIMARY KEY (campaign_id, iteration)
		)`,
		`CREATE TABLE IF NOT EXISTS covered_offsets (
			campaign_id TEXT NOT NULL,
			pc TEXT NOT NULL,
			PRIMARY KEY (campaign_id, pc)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "store: migrate")
		}
	}
	return nil
}

// Campaign is one fuzz run's persisted header row.
type Campaign struct {
	ID           string
	Method       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	TotalOffsets int
	CoveredCount int
	Iterations   int
}

func (s *Store) StartCampaign(ctx context.Context, c Campaign) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO campaigns (id, method, started_at, total_offsets) VALUES ($1, $2, $3, $4)`),
		c.ID, c.Method, c.StartedAt, c.TotalOffsets)
	return errors.Wrap(err, "store: start campaign")
}

func (s *Store) FinishCampaign(ctx context.Context, id string, iterations, covered int, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE campaigns SET finished_at = $1, iterations = $2, covered_offsets = $3 WHERE id = $4`),
		finishedAt, iterations, covered, id)
	return errors.Wrap(err, "store: finish campaign")
}

// RecordIteration appends one fuzz iteration and, if it found new
// coverage, the newly-covered program counters.
func (s *Store) RecordIteration(ctx context.Context, campaignID string, iteration int, args string, outcome interp.Outcome, newCoverage bool, newPCs []string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO corpus_entries (campaign_id, iteration, args, outcome, new_coverage) VALUES ($1, $2, $3, $4, $5)`),
		campaignID, iteration, args, string(outcome), newCoverage)
	if err != nil {
		return errors.Wrap(err, "store: record iteration")
	}
	for _, pc := range newPCs {
		if _, err := s.db.ExecContext(ctx,
			s.rebind(`INSERT INTO covered_offsets (campaign_id, pc) VALUES ($1, $2)`), campaignID, pc); err != nil {
			return errors.Wrap(err, "store: record coverage")
		}
	}
	return nil
}

// Corpus returns the argument tuples of a campaign's iterations that
// found new coverage, in iteration order, so a later run can resume from
// a prior corpus.
func (s *Store) Corpus(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT args FROM corpus_entries WHERE campaign_id = $1 AND new_coverage = true ORDER BY iteration`), campaignID)
	if err != nil {
		return nil, errors.Wrap(err, "store: load corpus")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var args string
		if err := rows.Scan(&args); err != nil {
			return nil, errors.Wrap(err, "store: scan corpus row")
		}
		out = append(out, args)
	}
	return out, errors.Wrap(rows.Err(), "store: read corpus")
}

func (c Campaign) String() string {
	return fmt.Sprintf("%s (%s)", c.ID, c.Method)
}
