// Package store persists uploaded images and their question/answer state in
// a relational database. Two interchangeable backends exist: postgres for
// deployments and sqlite for local runs and tests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record lifecycle states.
const (
	StatusNoQuestion = "no_question"
	StatusPending    = "pending"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

type ImageRecord struct {
	ID        int64
	Filename  string
	Data      []byte
	Question  sql.NullString
	Answer    sql.NullString
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImageSummary is a listing row without the binary payload.
type ImageSummary struct {
	ID       int64
	Filename string
	Question sql.NullString
	Answer   sql.NullString
	Status   string
}

type ImageStore interface {
	// Create inserts a new record with no question or answer and returns its id.
	Create(ctx context.Context, filename string, data []byte) (int64, error)

	// Get fetches the full record. Returns common.ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*ImageRecord, error)

	// GetData fetches only the binary payload. Returns common.ErrNotFound when absent.
	GetData(ctx context.Context, id int64) ([]byte, error)

	// List returns all records newest-id-first, omitting binary payloads.
	List(ctx context.Context) ([]ImageSummary, error)

	// SetQuestion atomically sets the question, clears any answer and marks
	// the record pending.
	SetQuestion(ctx context.Context, id int64, question string) error

	// SetAnswer writes the answer for the given question. The update applies
	// only while the stored question still equals the one the answer was
	// produced for, so stale results and writes to deleted ids affect zero
	// rows. Reports whether a row was updated.
	SetAnswer(ctx context.Context, id int64, question, answer string) (bool, error)

	// MarkFailed records that answer generation for the given question failed.
	// Like SetAnswer, it is a no-op once the question has changed.
	MarkFailed(ctx context.Context, id int64, question string) error

	// Delete removes the record. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id int64) error

	Close() error
}

// New opens a store backend by driver name ("postgres" or "sqlite") and
// ensures its schema exists.
func New(driver, dsn string) (ImageStore, error) {
	switch driver {
	case "postgres":
		return NewPostgresStore(dsn)
	case "sqlite":
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
