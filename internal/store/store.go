// Package store is the relational store behind the API, the coaching pipeline
// and the proactive scheduler. Every method commits on return, so ids created
// by one call are visible to the next.
package store

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a compare-and-set status transition loses.
	ErrConflict = errors.New("conflict")
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy of the store that stamps rows using now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type scanner interface {
	Scan(dest ...any) error
}
