package sink

import (
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/user/fleetprobe/internal/model"
)

// SQLiteSink persists one run's report. It stores single runs only; no
// trend analysis lives here, downstream tooling can query the file.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink wraps an open database handle. Tests inject a mock here.
func NewSQLiteSink(db *sql.DB) *SQLiteSink {
	return &SQLiteSink{db: db}
}

// OpenSQLiteSink opens (or creates) the report database at path.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open report database")
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	s := &SQLiteSink{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			host TEXT,
			kernel TEXT,
			total INTEGER,
			succeeded INTEGER,
			failed INTEGER,
			timed_out INTEGER,
			unsupported INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			target TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			metrics TEXT,
			diag TEXT,
			started_at DATETIME,
			ended_at DATETIME,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
	}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return errors.Wrap(err, "failed to create tables")
		}
	}
	return nil
}

// Write stores the run row and one row per outcome in a single transaction.
func (s *SQLiteSink) Write(report *model.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	sum := report.Summary
	_, err = tx.Exec(
		`INSERT INTO runs (run_id, started_at, host, kernel, total, succeeded, failed, timed_out, unsupported)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Meta.RunID, report.Meta.StartedAt, report.Meta.Host, report.Meta.Kernel,
		sum.Total, sum.Succeeded, sum.Failed, sum.TimedOut, sum.Unsupported)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to insert run")
	}

	for _, tr := range report.Targets {
		for _, out := range tr.Outcomes {
			metrics, merr := marshalMetrics(out)
			if merr != nil {
				tx.Rollback()
				return merr
			}
			_, err = tx.Exec(
				`INSERT INTO outcomes (run_id, target, kind, status, metrics, diag, started_at, ended_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				report.Meta.RunID, out.Target, string(out.Kind), string(out.Status),
				metrics, out.Diag, out.StartedAt, out.EndedAt)
			if err != nil {
				tx.Rollback()
				return errors.Wrap(err, "failed to insert outcome")
			}
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit report")
}

// marshalMetrics serializes whichever metric set the outcome carries.
func marshalMetrics(out model.Outcome) (string, error) {
	var v interface{}
	switch {
	case out.ICMP != nil:
		v = out.ICMP
	case out.ARP != nil:
		v = out.ARP
	case out.TCP != nil:
		v = out.TCP
	case out.DNS != nil:
		v = out.DNS
	case out.TLS != nil:
		v = out.TLS
	case out.Link != nil:
		v = out.Link
	default:
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal metrics")
	}
	return string(b), nil
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
