// Package store appends run summaries to a SQL history table. The table
// lives in MySQL/TiDB for shared CI history or in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"time"

	"parity/internal/config"
	"parity/internal/runinfo"
	"parity/internal/runner"
	"parity/internal/util"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Entry is one row of run history.
type Entry struct {
	RunID          string
	EntryPoint     string
	Seed           int64
	Passed         bool
	Total          int
	Failures       int
	Discarded      int
	GaveUp         bool
	StoppedEarly   bool
	Canceled       bool
	Counts         string
	UploadLocation string
	Commit         string
	StartedAt      time.Time
	DurationMs     int64
}

// NewEntry flattens a run result into a history row.
func NewEntry(res *runner.RunResult, info *runinfo.BasicInfo, location string) (Entry, error) {
	counts := make(map[string]int, len(res.Counts))
	for v, n := range res.Counts {
		counts[v.String()] = n
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		return Entry{}, errors.Wrap(err, "encode counts")
	}
	e := Entry{
		RunID:          res.ID,
		EntryPoint:     res.EntryPoint,
		Seed:           res.Seed,
		Passed:         res.Passed(),
		Total:          res.Total,
		Failures:       res.Failures(),
		Discarded:      res.Discarded,
		GaveUp:         res.GaveUp,
		StoppedEarly:   res.StoppedEarly,
		Canceled:       res.Canceled,
		Counts:         string(raw),
		UploadLocation: location,
		StartedAt:      res.StartedAt,
		DurationMs:     res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}
	if info != nil {
		e.Commit = info.Commit
	}
	return e, nil
}

// History is an open history table.
type History struct {
	db     *sql.DB
	driver string
	table  string
}

// Open connects to the configured backend and creates the table if needed.
func Open(ctx context.Context, cfg config.HistoryConfig) (*History, error) {
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, errors.Errorf("history: invalid table name %q", cfg.Table)
	}
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverMySQL:
		db, err = openMySQL(ctx, cfg.DSN)
	case DriverSQLite:
		db, err = sql.Open(DriverSQLite, cfg.DSN)
	default:
		return nil, errors.Errorf("history: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "history: open %s", cfg.Driver)
	}
	if err := db.PingContext(ctx); err != nil {
		util.CloseWithErr(db, "history db")
		return nil, errors.Wrapf(err, "history: ping %s", cfg.Driver)
	}
	h := &History{db: db, driver: cfg.Driver, table: cfg.Table}
	if err := h.init(ctx); err != nil {
		util.CloseWithErr(db, "history db")
		return nil, err
	}
	return h, nil
}

func (h *History) init(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+h.table+` (
		run_id VARCHAR(64) NOT NULL PRIMARY KEY,
		entry_point VARCHAR(255) NOT NULL,
		seed BIGINT NOT NULL,
		passed BOOLEAN NOT NULL,
		total INT NOT NULL,
		failures INT NOT NULL,
		discarded INT NOT NULL,
		gave_up BOOLEAN NOT NULL,
		stopped_early BOOLEAN NOT NULL,
		canceled BOOLEAN NOT NULL,
		counts TEXT NOT NULL,
		upload_location TEXT NOT NULL,
		ci_commit VARCHAR(64) NOT NULL,
		started_at_ms BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL
	)`)
	return errors.Wrap(err, "history: create table")
}

// Record appends one row.
func (h *History) Record(ctx context.Context, e Entry) error {
	_, err := h.db.ExecContext(ctx, `INSERT INTO `+h.table+` (
		run_id, entry_point, seed, passed, total, failures, discarded,
		gave_up, stopped_early, canceled, counts, upload_location, ci_commit,
		started_at_ms, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.EntryPoint, e.Seed, e.Passed, e.Total, e.Failures, e.Discarded,
		e.GaveUp, e.StoppedEarly, e.Canceled, e.Counts, e.UploadLocation, e.Commit,
		e.StartedAt.UnixMilli(), e.DurationMs)
	return errors.Wrapf(err, "history: record %s", e.RunID)
}

// Recent returns up to limit rows for the entry point, newest first.
func (h *History) Recent(ctx context.Context, entryPoint string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx, `SELECT
		run_id, entry_point, seed, passed, total, failures, discarded,
		gave_up, stopped_early, canceled, counts, upload_location, ci_commit,
		started_at_ms, duration_ms
	FROM `+h.table+` WHERE entry_point = ? ORDER BY started_at_ms DESC, run_id DESC LIMIT ?`, entryPoint, limit)
	if err != nil {
		return nil, errors.Wrap(err, "history: query")
	}
	defer util.CloseWithErr(rows, "history rows")
	var out []Entry
	for rows.Next() {
		var e Entry
		var startedMs int64
		if err := rows.Scan(
			&e.RunID, &e.EntryPoint, &e.Seed, &e.Passed, &e.Total, &e.Failures, &e.Discarded,
			&e.GaveUp, &e.StoppedEarly, &e.Canceled, &e.Counts, &e.UploadLocation, &e.Commit,
			&startedMs, &e.DurationMs,
		); err != nil {
			return nil, errors.Wrap(err, "history: scan")
		}
		e.StartedAt = time.UnixMilli(startedMs)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "history: rows")
}

// Close closes the connection pool.
func (h *History) Close() error {
	return h.db.Close()
}
