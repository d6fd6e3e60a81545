package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/flatparser/internal/model"
	"github.com/nao1215/flatparser/internal/table"
)

// FileName is the ledger file created inside the database directory.
const FileName = "flatparser.db"

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Ledger stores run history in SQLite.
type Ledger struct {
	db     *sql.DB
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the ledger in dbDir.
func Open(dbDir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (l *Ledger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		parser TEXT NOT NULL,
		input TEXT,
		output TEXT,
		workers INTEGER DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		total INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		row_count INTEGER DEFAULT 0,
		error TEXT,
		interrupted INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_parser ON runs(parser);

	CREATE TABLE IF NOT EXISTS task_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		label TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		records INTEGER DEFAULT 0,
		row_hash TEXT,
		UNIQUE(run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON task_outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_hash ON task_outcomes(row_hash);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a run and its outcomes in one transaction. Outcomes with
// a non-empty Origin row and no RowHash get one computed.
func (l *Ledger) SaveRun(ctx context.Context, run *model.RunReport) (err error) {
	if run.ID == uuid.Nil {
		return errors.New("run has no id")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, operation, parser, input, output, workers, started_at, finished_at,
		total, succeeded, failed, cancelled, row_count, error, interrupted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		string(run.Operation),
		run.Parser,
		run.Input,
		run.Output,
		run.Workers,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Cancelled,
		run.Rows,
		run.Error,
		boolToInt(run.Interrupted),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Outcomes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_outcomes (run_id, idx, label, status, reason, records, row_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare outcome insert: %w", err)
		}
		defer stmt.Close()

		for i := range run.Outcomes {
			o := &run.Outcomes[i]
			if o.RowHash == "" && len(o.Origin) > 0 {
				o.RowHash = Fingerprint(o.Origin)
			}
			// Outcomes without an origin store NULL so they never match a lookup.
			if _, err := stmt.ExecContext(ctx,
				run.ID.String(), o.Index, o.Label, o.Status, o.Reason, o.Records, nullString(o.RowHash),
			); err != nil {
				return fmt.Errorf("failed to insert outcome %d: %w", o.Index, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, operation, parser, input, output, workers, started_at, finished_at,
	total, succeeded, failed, cancelled, row_count, error, interrupted`

// ListRuns returns up to limit runs, newest first, without outcomes.
// A non-positive limit returns every run. A non-empty parser filters.
func (l *Ledger) ListRuns(ctx context.Context, parser string, limit int) ([]*model.RunReport, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if parser != "" {
		query += ` WHERE parser = ?`
		args = append(args, parser)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunReport
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run with its outcomes. idPrefix may be a full id or a
// unique prefix of one, as printed by `flatparser history`.
func (l *Ledger) GetRun(ctx context.Context, idPrefix string) (*model.RunReport, error) {
	idPrefix = strings.TrimSpace(idPrefix)
	if idPrefix == "" {
		return nil, ErrRunNotFound
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(idPrefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []*model.RunReport
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the single connection before querying outcomes.
	_ = rows.Close()

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
	default:
		return nil, fmt.Errorf("ambiguous run id prefix %q", idPrefix)
	}

	run := found[0]
	if run.Outcomes, err = l.GetOutcomes(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// GetOutcomes returns the outcomes of a run ordered by task index.
func (l *Ledger) GetOutcomes(ctx context.Context, runID uuid.UUID) ([]model.TaskOutcome, error) {
	return l.queryOutcomes(ctx, `
	SELECT idx, label, status, reason, records, row_hash
	FROM task_outcomes
	WHERE run_id = ?
	ORDER BY idx`, runID.String())
}

// FindOutcomesByRow returns the outcomes of every run that processed a row
// with the same fingerprint, newest first. An empty row matches nothing.
func (l *Ledger) FindOutcomesByRow(ctx context.Context, row table.Row) ([]model.RowOutcome, error) {
	if len(row) == 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
	SELECT r.id, r.operation, r.parser, r.started_at,
		o.idx, o.label, o.status, o.reason, o.records, o.row_hash
	FROM task_outcomes o JOIN runs r ON r.id = o.run_id
	WHERE o.row_hash = ?
	ORDER BY r.started_at DESC, o.idx`, Fingerprint(row))
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []model.RowOutcome
	for rows.Next() {
		var (
			o         model.RowOutcome
			id        string
			operation string
			startedAt string
			reason    sql.NullString
			rowHash   sql.NullString
		)
		if err := rows.Scan(&id, &operation, &o.Parser, &startedAt,
			&o.Index, &o.Label, &o.Status, &reason, &o.Records, &rowHash); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if o.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		o.Operation = model.Operation(operation)
		o.StartedAt = parseTimestamp(startedAt)
		o.Reason = reason.String
		o.RowHash = rowHash.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (l *Ledger) queryOutcomes(ctx context.Context, query string, args ...any) ([]model.TaskOutcome, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []model.TaskOutcome
	for rows.Next() {
		var (
			o       model.TaskOutcome
			reason  sql.NullString
			rowHash sql.NullString
		)
		if err := rows.Scan(&o.Index, &o.Label, &o.Status, &reason, &o.Records, &rowHash); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Reason = reason.String
		o.RowHash = rowHash.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// rowScanner is satisfied by *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*model.RunReport, error) {
	var (
		run         model.RunReport
		id          string
		operation   string
		input       sql.NullString
		output      sql.NullString
		startedAt   string
		finishedAt  sql.NullString
		errText     sql.NullString
		interrupted int
	)
	if err := s.Scan(&id, &operation, &run.Parser, &input, &output, &run.Workers,
		&startedAt, &finishedAt, &run.Total, &run.Succeeded, &run.Failed, &run.Cancelled,
		&run.Rows, &errText, &interrupted); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Operation = model.Operation(operation)
	run.Input = input.String
	run.Output = output.String
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt.String)
	run.Error = errText.String
	run.Interrupted = interrupted != 0
	return &run, nil
}

// Fingerprint returns the hex SHA3-256 of a row. Keys are hashed in sorted
// order so equal rows hash equally regardless of map iteration.
func Fingerprint(row table.Row) string {
	h := sha3.New256()
	for _, k := range row.Keys() {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(row[k]))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormat sorts lexically in chronological order.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampFormat)
}

// timestampFormats lists the formats accepted when reading timestamps.
var timestampFormats = []string{
	timestampFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp attempts each format and returns the zero time when none
// matches.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
