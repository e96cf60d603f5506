// Package journal keeps a history of sync passes and their per-row outcomes.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Journal is a run log backed by database/sql.
type Journal struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect dialect
	log     *slog.Logger
	now     func() time.Time
}

// Open connects to the journal database and migrates its schema.
// postgres:// and postgresql:// DSNs go through a pgx pool; anything else is a SQLite DSN.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Journal{log: logger, now: time.Now}

	if isPostgres(cfg.DSN) {
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, common.NewAppError(common.CodeJournal, "parse journal dsn", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		if cfg.MaxConnIdleTime > 0 {
			pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "wirecert-sync"

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			return nil, common.NewAppError(common.CodeJournal, "connect journal database", err)
		}
		j.pool = pool
		j.db = stdlib.OpenDBFromPool(pool)
		j.dialect = dialectPostgres
	} else {
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, common.NewAppError(common.CodeJournal, "open journal database", err)
		}
		// one writer keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
		j.db = db
		j.dialect = dialectSQLite
	}

	if err := j.db.PingContext(ctx); err != nil {
		j.Close()
		return nil, common.NewAppError(common.CodeJournal, "ping journal database", err)
	}
	if err := j.migrate(ctx); err != nil {
		j.Close()
		return nil, err
	}
	logger.Info("journal.opened", "driver", j.driverName())
	return j, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (j *Journal) driverName() string {
	if j.dialect == dialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Close releases the database handle and, for Postgres, the pool.
func (j *Journal) Close() {
	if j.db != nil {
		if err := j.db.Close(); err != nil {
			j.log.Error("journal.close.failed", "err", err)
		}
	}
	if j.pool != nil {
		j.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		rows_seen INTEGER NOT NULL DEFAULT 0,
		rows_changed INTEGER NOT NULL DEFAULT 0,
		before_hash TEXT NOT NULL DEFAULT '',
		after_hash TEXT NOT NULL DEFAULT '',
		uploaded BOOLEAN NOT NULL DEFAULT FALSE,
		upload_attempts INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sync_run_rows (
		run_id TEXT NOT NULL REFERENCES sync_runs(id),
		row_index INTEGER NOT NULL,
		asset_id BIGINT,
		asset_tag TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		wire_roll TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, row_index)
	)`,
	`CREATE INDEX IF NOT EXISTS sync_runs_started_at_idx ON sync_runs (started_at)`,
}

func (j *Journal) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return common.NewAppError(common.CodeJournal, "migrate journal schema", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (j *Journal) rebind(q string) string {
	if j.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (j *Journal) exec(ctx context.Context, q string, args ...any) error {
	_, err := j.db.ExecContext(ctx, j.rebind(q), args...)
	return err
}

// fixed-width UTC timestamps so ORDER BY on the text column is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// StartRun inserts a RUNNING run and returns its id.
func (j *Journal) StartRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	err := j.exec(ctx, `INSERT INTO sync_runs (id, started_at, status) VALUES (?, ?, ?)`,
		id, formatTime(j.now()), string(constants.RunStatusRunning))
	if err != nil {
		j.log.Error("journal.start_run.failed", "err", err)
		return "", common.NewAppError(common.CodeJournal, "insert run", err)
	}
	j.log.Debug("journal.run.started", "run_id", id)
	return id, nil
}

// RecordRow stores the outcome of one spreadsheet row.
func (j *Journal) RecordRow(ctx context.Context, runID string, o RowOutcome) error {
	var assetID any
	if o.AssetID != nil {
		assetID = *o.AssetID
	}
	err := j.exec(ctx, `INSERT INTO sync_run_rows (run_id, row_index, asset_id, asset_tag, status, wire_roll, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, o.RowIndex, assetID, o.AssetTag, string(o.Status), o.WireRoll, o.Message)
	if err != nil {
		return common.NewAppError(common.CodeJournal, fmt.Sprintf("insert row %d", o.RowIndex), err)
	}
	return nil
}

// FinishRun stamps the run with its final counters and status.
func (j *Journal) FinishRun(ctx context.Context, runID string, s Summary) error {
	err := j.exec(ctx, `UPDATE sync_runs SET finished_at = ?, status = ?, rows_seen = ?, rows_changed = ?,
		before_hash = ?, after_hash = ?, uploaded = ?, upload_attempts = ?, error = ? WHERE id = ?`,
		formatTime(j.now()), string(s.Status), s.RowsSeen, s.RowsChanged,
		s.BeforeHash, s.AfterHash, s.Uploaded, s.UploadAttempts, s.Error, runID)
	if err != nil {
		j.log.Error("journal.finish_run.failed", "run_id", runID, "err", err)
		return common.NewAppError(common.CodeJournal, "update run", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(`SELECT id, started_at, finished_at, status, rows_seen, rows_changed,
		before_hash, after_hash, uploaded, upload_attempts, error
		FROM sync_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, common.NewAppError(common.CodeJournal, "query runs", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
			status   string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &status, &r.RowsSeen, &r.RowsChanged,
			&r.BeforeHash, &r.AfterHash, &r.Uploaded, &r.UploadAttempts, &r.Error); err != nil {
			return nil, common.NewAppError(common.CodeJournal, "scan run", err)
		}
		r.Status = constants.RunStatus(status)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, common.NewAppError(common.CodeJournal, "parse started_at", err)
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, common.NewAppError(common.CodeJournal, "parse finished_at", err)
			}
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeJournal, "iterate runs", err)
	}
	return out, nil
}

// RunRows returns the recorded row outcomes of one run in sheet order.
func (j *Journal) RunRows(ctx context.Context, runID string) ([]RowOutcome, error) {
	rows, err := j.db.QueryContext(ctx, j.rebind(`SELECT row_index, asset_id, asset_tag, status, wire_roll, message
		FROM sync_run_rows WHERE run_id = ? ORDER BY row_index`), runID)
	if err != nil {
		return nil, common.NewAppError(common.CodeJournal, "query run rows", err)
	}
	defer rows.Close()

	var out []RowOutcome
	for rows.Next() {
		var (
			o       RowOutcome
			assetID sql.NullInt64
			status  string
		)
		if err := rows.Scan(&o.RowIndex, &assetID, &o.AssetTag, &status, &o.WireRoll, &o.Message); err != nil {
			return nil, common.NewAppError(common.CodeJournal, "scan run row", err)
		}
		if assetID.Valid {
			v := assetID.Int64
			o.AssetID = &v
		}
		o.Status = constants.RowStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
