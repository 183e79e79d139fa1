package macro

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for run history persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// Only runs are persisted. Macro definitions carry live action trees and
// are rebuilt through the registry on every boot.
type Repository interface {
	// CreateRun inserts the initial record for a run.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRun stores the final state of a run.
	UpdateRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns retrieves runs of one macro, newest first.
	ListRuns(ctx context.Context, macroID string, limit int) ([]Run, error)

	// ListRecent retrieves the most recent runs across all macros.
	ListRecent(ctx context.Context, limit int) ([]Run, error)
}

const (
	defaultRunLimit = 10
	maxRunLimit     = 100
)

// timeLayout is RFC3339 with a fixed-width millisecond fraction.
// Fixed width keeps lexicographic order identical to time order, which the
// ORDER BY clauses rely on.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// runColumns is the SELECT column list for run queries.
const runColumns = `id, macro_id, macro_name, triggered_at, started_at, completed_at,
	trigger_kind, event_id, event_type, status, failed_node_id, failed_node_name,
	error, duration_ms`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed run history.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun inserts the initial record for a run.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO macro_runs (
			id, macro_id, macro_name, triggered_at, started_at, completed_at,
			trigger_kind, event_id, event_type, status, failed_node_id,
			failed_node_name, error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.MacroID,
		run.MacroName,
		run.TriggeredAt.UTC().Format(timeLayout),
		nullableTime(run.StartedAt),
		nullableTime(run.CompletedAt),
		run.TriggerKind,
		nullableString(run.EventID),
		nullableString(run.EventType),
		string(run.Status),
		nullableString(run.FailedNodeID),
		nullableString(run.FailedNodeName),
		nullableString(run.ErrorMsg),
		nullableInt(run.DurationMS),
	)
	if err != nil {
		return fmt.Errorf("inserting macro run: %w", err)
	}
	return nil
}

// UpdateRun stores the final state of a run.
func (r *SQLiteRepository) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE macro_runs SET
			started_at = ?, completed_at = ?, status = ?, failed_node_id = ?,
			failed_node_name = ?, error = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableTime(run.StartedAt),
		nullableTime(run.CompletedAt),
		string(run.Status),
		nullableString(run.FailedNodeID),
		nullableString(run.FailedNodeName),
		nullableString(run.ErrorMsg),
		nullableInt(run.DurationMS),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating macro run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %q", ErrRunNotFound, run.ID)
	}
	return nil
}

// GetRun retrieves a run by its unique identifier.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM macro_runs WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("querying macro run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs of one macro, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, macroID string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM macro_runs
		WHERE macro_id = ?
		ORDER BY triggered_at DESC, id DESC LIMIT ?`

	return r.queryRuns(ctx, query, macroID, clampLimit(limit))
}

// ListRecent retrieves the most recent runs across all macros.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM macro_runs
		ORDER BY triggered_at DESC, id DESC LIMIT ?`

	return r.queryRuns(ctx, query, clampLimit(limit))
}

func (r *SQLiteRepository) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying macro runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, scanErr := scanRunFromRows(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning macro run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating macro runs: %w", err)
	}
	return runs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRunLimit
	}
	if limit > maxRunLimit {
		return maxRunLimit
	}
	return limit
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single sql.Row into a Run.
func scanRun(row *sql.Row) (*Run, error) {
	return scanRunRow(row)
}

// scanRunFromRows scans a sql.Rows result into a Run.
func scanRunFromRows(rows *sql.Rows) (*Run, error) {
	return scanRunRow(rows)
}

func scanRunRow(scanner rowScanner) (*Run, error) {
	var run Run
	var triggeredAt, status string
	var startedAt, completedAt sql.NullString
	var eventID, eventType sql.NullString
	var failedNodeID, failedNodeName, errorMsg sql.NullString
	var durationMS sql.NullInt64

	err := scanner.Scan(
		&run.ID,
		&run.MacroID,
		&run.MacroName,
		&triggeredAt,
		&startedAt,
		&completedAt,
		&run.TriggerKind,
		&eventID,
		&eventType,
		&status,
		&failedNodeID,
		&failedNodeName,
		&errorMsg,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)

	// Timestamps are stored in UTC with millisecond precision.
	if t, parseErr := time.Parse(timeLayout, triggeredAt); parseErr == nil {
		run.TriggeredAt = t
	}
	run.StartedAt = parseNullableTime(startedAt)
	run.CompletedAt = parseNullableTime(completedAt)

	run.EventID = stringPtr(eventID)
	run.EventType = stringPtr(eventType)
	run.FailedNodeID = stringPtr(failedNodeID)
	run.FailedNodeName = stringPtr(failedNodeName)
	run.ErrorMsg = stringPtr(errorMsg)

	if durationMS.Valid {
		d := int(durationMS.Int64)
		run.DurationMS = &d
	}

	return &run, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func nullableInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
