// Package state manages the SQLite database holding the local mirror of
// synced calendar events and the per-calendar sync tokens.
//
// Only this package may open or query the database. All other packages
// receive a [*Store] and call its methods.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    provider_id   TEXT NOT NULL,
    event_id      TEXT NOT NULL,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    location      TEXT NOT NULL DEFAULT '',
    start_at      TEXT NOT NULL,
    end_at        TEXT NOT NULL,
    all_day       INTEGER NOT NULL DEFAULT 0,
    attendees     TEXT NOT NULL DEFAULT '[]',
    recurrence    TEXT NOT NULL DEFAULT '',
    reminders     TEXT NOT NULL DEFAULT '[]',
    status        INTEGER NOT NULL DEFAULT 0,
    visibility    INTEGER NOT NULL DEFAULT 0,
    attachments   TEXT NOT NULL DEFAULT '[]',
    last_modified TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (provider_id, event_id)
);

CREATE INDEX IF NOT EXISTS idx_events_start ON events (provider_id, start_at);

CREATE TABLE IF NOT EXISTS sync_tokens (
    provider_id TEXT NOT NULL,
    calendar_id TEXT NOT NULL,
    token       TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (provider_id, calendar_id)
);
`

// Store is the SQLite-backed local event repository. It implements the sync
// engine's EventStore collaborator.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the state database:
// ~/.local/share/calsync/state.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "calsync", "state.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema,
// and configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

const eventColumns = `event_id, title, description, location, start_at, end_at, all_day,
       attendees, recurrence, reminders, status, visibility, attachments, last_modified`

// ListEvents returns all stored events for the provider whose occurrence
// overlaps the window. Events without a stored start fall outside every
// window and are never returned.
func (s *Store) ListEvents(ctx context.Context, providerID string, w model.Window) ([]model.Event, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE provider_id = ? AND end_at >= ? AND start_at <= ?
		ORDER BY start_at, event_id`
	rows, err := s.db.QueryContext(ctx, q, providerID, formatTime(w.Start), formatTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("querying events for provider %q: %w", providerID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetEvent returns the stored event with the given ID, or (nil, nil) if no
// such event exists.
func (s *Store) GetEvent(ctx context.Context, providerID, eventID string) (*model.Event, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM events WHERE provider_id = ? AND event_id = ?`
	row := s.db.QueryRowContext(ctx, q, providerID, eventID)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpsertEvent inserts or replaces the event keyed by (providerID, ev.ID).
func (s *Store) UpsertEvent(ctx context.Context, providerID string, ev model.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("upserting event %q: event has no provider ID", ev.Title)
	}

	attendees, err := json.Marshal(ev.Attendees)
	if err != nil {
		return fmt.Errorf("encoding attendees for %q: %w", ev.Title, err)
	}
	reminders, err := json.Marshal(ev.Reminders)
	if err != nil {
		return fmt.Errorf("encoding reminders for %q: %w", ev.Title, err)
	}
	attachments, err := json.Marshal(ev.Attachments)
	if err != nil {
		return fmt.Errorf("encoding attachments for %q: %w", ev.Title, err)
	}
	recurrence := ""
	if ev.Recurrence != nil {
		raw, err := json.Marshal(ev.Recurrence)
		if err != nil {
			return fmt.Errorf("encoding recurrence for %q: %w", ev.Title, err)
		}
		recurrence = string(raw)
	}

	const q = `
		INSERT INTO events
		    (provider_id, event_id, title, description, location, start_at, end_at, all_day,
		     attendees, recurrence, reminders, status, visibility, attachments, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_id, event_id) DO UPDATE SET
		    title         = excluded.title,
		    description   = excluded.description,
		    location      = excluded.location,
		    start_at      = excluded.start_at,
		    end_at        = excluded.end_at,
		    all_day       = excluded.all_day,
		    attendees     = excluded.attendees,
		    recurrence    = excluded.recurrence,
		    reminders     = excluded.reminders,
		    status        = excluded.status,
		    visibility    = excluded.visibility,
		    attachments   = excluded.attachments,
		    last_modified = excluded.last_modified`

	_, err = s.db.ExecContext(ctx, q,
		providerID,
		ev.ID,
		ev.Title,
		ev.Description,
		ev.Location,
		formatTime(ev.Start),
		formatTime(ev.End),
		ev.AllDay,
		string(attendees),
		recurrence,
		string(reminders),
		int(ev.Status),
		int(ev.Visibility),
		string(attachments),
		formatTime(ev.LastModified),
	)
	if err != nil {
		return fmt.Errorf("upserting event %q: %w", ev.Title, err)
	}
	return nil
}

// DeleteEvent removes the event keyed by (providerID, eventID). Deleting a
// missing event is not an error.
func (s *Store) DeleteEvent(ctx context.Context, providerID, eventID string) error {
	const q = `DELETE FROM events WHERE provider_id = ? AND event_id = ?`
	if _, err := s.db.ExecContext(ctx, q, providerID, eventID); err != nil {
		return fmt.Errorf("deleting event %q: %w", eventID, err)
	}
	return nil
}

// SyncToken returns the stored incremental-sync token for the calendar, or
// "" when none has been recorded yet.
func (s *Store) SyncToken(ctx context.Context, providerID, calendarID string) (string, error) {
	const q = `SELECT token FROM sync_tokens WHERE provider_id = ? AND calendar_id = ?`
	var token string
	err := s.db.QueryRowContext(ctx, q, providerID, calendarID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying sync token for %s/%s: %w", providerID, calendarID, err)
	}
	return token, nil
}

// SetSyncToken records the incremental-sync token for the calendar. An
// empty token clears the stored row, forcing the next pass to do a full
// fetch.
func (s *Store) SetSyncToken(ctx context.Context, providerID, calendarID, token string) error {
	if token == "" {
		const q = `DELETE FROM sync_tokens WHERE provider_id = ? AND calendar_id = ?`
		if _, err := s.db.ExecContext(ctx, q, providerID, calendarID); err != nil {
			return fmt.Errorf("clearing sync token for %s/%s: %w", providerID, calendarID, err)
		}
		return nil
	}

	const q = `
		INSERT INTO sync_tokens (provider_id, calendar_id, token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider_id, calendar_id) DO UPDATE SET
		    token      = excluded.token,
		    updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, providerID, calendarID, token, formatTime(time.Now())); err != nil {
		return fmt.Errorf("storing sync token for %s/%s: %w", providerID, calendarID, err)
	}
	return nil
}

// IsEmpty reports whether the events table has no rows.
// Used by the first-run bootstrap to detect a fresh install.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking if store is empty: %w", err)
	}
	return count == 0, nil
}

// --- helpers -----------------------------------------------------------------

// scanner matches both *sql.Row and *sql.Rows so scanEvent can be reused.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (model.Event, error) {
	var ev model.Event
	var startAt, endAt, lastModified string
	var attendees, recurrence, reminders, attachments string
	var status, visibility int

	err := s.Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.Location,
		&startAt,
		&endAt,
		&ev.AllDay,
		&attendees,
		&recurrence,
		&reminders,
		&status,
		&visibility,
		&attachments,
		&lastModified,
	)
	if err == sql.ErrNoRows {
		return model.Event{}, err
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("scanning event row: %w", err)
	}

	ev.Start, _ = parseTime(startAt)
	ev.End, _ = parseTime(endAt)
	ev.LastModified, _ = parseTime(lastModified)
	ev.Status = model.Status(status)
	ev.Visibility = model.Visibility(visibility)

	if err := json.Unmarshal([]byte(attendees), &ev.Attendees); err != nil {
		return model.Event{}, fmt.Errorf("decoding attendees for %q: %w", ev.ID, err)
	}
	if err := json.Unmarshal([]byte(reminders), &ev.Reminders); err != nil {
		return model.Event{}, fmt.Errorf("decoding reminders for %q: %w", ev.ID, err)
	}
	if err := json.Unmarshal([]byte(attachments), &ev.Attachments); err != nil {
		return model.Event{}, fmt.Errorf("decoding attachments for %q: %w", ev.ID, err)
	}
	if recurrence != "" {
		ev.Recurrence = &model.RecurrenceRule{}
		if err := json.Unmarshal([]byte(recurrence), ev.Recurrence); err != nil {
			return model.Event{}, fmt.Errorf("decoding recurrence for %q: %w", ev.ID, err)
		}
	}

	return ev, nil
}

// timeLayout is fixed-width so UTC timestamps compare correctly as strings
// in range queries. RFC3339Nano trims trailing zeros and breaks that.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
