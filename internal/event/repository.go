package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for event log persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Insert appends an event to the log.
	Insert(ctx context.Context, evt Event) error

	// GetByID retrieves a logged event.
	GetByID(ctx context.Context, id string) (*Event, error)

	// List retrieves logged events, newest first.
	List(ctx context.Context, filter LogFilter) ([]Event, error)

	// Prune deletes all but the newest keep events and returns the
	// number of rows removed.
	Prune(ctx context.Context, keep int) (int64, error)
}

// LogFilter narrows a List query. Zero values match everything.
type LogFilter struct {
	// Type restricts results to a single event type.
	Type Type

	// Source restricts results to a single emitter.
	Source string

	// Since restricts results to events at or after this time.
	Since time.Time

	// Limit caps the number of results (default 50, max 500).
	Limit int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// timeLayout is RFC3339 with a fixed-width millisecond fraction.
// Fixed width keeps lexicographic order identical to time order, which the
// ORDER BY and Prune queries rely on.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// eventColumns is the SELECT column list for event log queries.
const eventColumns = `id, event_type, payload, source, occurred_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed event log.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert appends an event to the log.
func (r *SQLiteRepository) Insert(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	payloadJSON, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	query := `INSERT INTO events (id, event_type, payload, source, occurred_at) VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		evt.ID,
		string(evt.Type),
		string(payloadJSON),
		nullableSource(evt.Source),
		evt.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// GetByID retrieves a logged event by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("querying event by id: %w", err)
	}
	return evt, nil
}

// List retrieves logged events, newest first, honouring the filter.
func (r *SQLiteRepository) List(ctx context.Context, filter LogFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		evt, scanErr := scanEventFromRows(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning event: %w", scanErr)
		}
		events = append(events, *evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// Prune deletes all but the newest keep events.
// A keep of zero or less empties the log entirely.
func (r *SQLiteRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	query := `
		DELETE FROM events
		WHERE id NOT IN (
			SELECT id FROM events ORDER BY occurred_at DESC, id DESC LIMIT ?
		)`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return removed, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent scans a single sql.Row into an Event.
func scanEvent(row *sql.Row) (*Event, error) {
	return scanEventRow(row)
}

// scanEventFromRows scans a sql.Rows result into an Event.
func scanEventFromRows(rows *sql.Rows) (*Event, error) {
	return scanEventRow(rows)
}

func scanEventRow(scanner rowScanner) (*Event, error) {
	var e Event
	var eventType, payloadRaw, occurredAt string
	var source sql.NullString

	err := scanner.Scan(
		&e.ID,
		&eventType,
		&payloadRaw,
		&source,
		&occurredAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = Type(eventType)
	if source.Valid {
		e.Source = source.String
	}

	// Timestamps are stored in UTC with millisecond precision.
	if t, parseErr := time.Parse(timeLayout, occurredAt); parseErr == nil {
		e.Timestamp = t
	}

	if payloadRaw != "" {
		if jsonErr := json.Unmarshal([]byte(payloadRaw), &e.Payload); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling payload: %w", jsonErr)
		}
	}

	return &e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableSource(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
