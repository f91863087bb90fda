package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is one executed (or failed) action.
type Event struct {
	ID       string    `json:"id"`
	Gesture  string    `json:"gesture,omitempty"`
	Op       string    `json:"op"`
	Value    *float64  `json:"value,omitempty"`
	Backend  string    `json:"backend,omitempty"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Duration int64     `json:"duration_ms"`
	At       time.Time `json:"at"`
}

// EventRepository records the action history.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts e, assigning an ID and timestamp when they are empty.
func (r *EventRepository) Record(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	var value sql.NullFloat64
	if e.Value != nil {
		value = sql.NullFloat64{Float64: *e.Value, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO action_events (id, gesture, op, value, backend, ok, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.Op, value, e.Backend, e.OK, e.Error, e.Duration, e.At.UTC(),
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, gesture, op, value, backend, ok, error, duration_ms, created_at
		 FROM action_events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns up to limit events, newest first. limit <= 0 means all.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, gesture, op, value, backend, ok, error, duration_ms, created_at
		 FROM action_events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of recorded events.
func (r *EventRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM action_events`).Scan(&n)
	return n, err
}

// Prune deletes all but the newest keep events and returns how many were
// removed.
func (r *EventRepository) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := r.db.Exec(
		`DELETE FROM action_events WHERE rowid NOT IN (
			SELECT rowid FROM action_events ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	e := &Event{}
	var value sql.NullFloat64
	var ok int
	if err := s.Scan(&e.ID, &e.Gesture, &e.Op, &value, &e.Backend, &ok, &e.Error, &e.Duration, &e.At); err != nil {
		return nil, err
	}
	if value.Valid {
		v := value.Float64
		e.Value = &v
	}
	e.OK = ok != 0
	return e, nil
}
