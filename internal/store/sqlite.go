package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"drawing-qa-backend/internal/common"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a sqlite database and ensures
// the schema exists. A single connection is used so that in-memory databases
// survive across operations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			data BLOB NOT NULL,
			question TEXT,
			answer TEXT,
			status TEXT NOT NULL DEFAULT 'no_question',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, filename string, data []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO images (filename, data, status) VALUES (?, ?, ?)
	`, filename, data, StatusNoQuestion)
	if err != nil {
		return 0, fmt.Errorf("failed to create image: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*ImageRecord, error) {
	var (
		rec                  ImageRecord
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, data, question, answer, status, created_at, updated_at
		FROM images
		WHERE id = ?
	`, id).Scan(
		&rec.ID, &rec.Filename, &rec.Data, &rec.Question,
		&rec.Answer, &rec.Status, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	rec.CreatedAt = parseSQLiteTime(createdAt)
	rec.UpdatedAt = parseSQLiteTime(updatedAt)
	return &rec, nil
}

// parseSQLiteTime decodes the textual timestamps sqlite stores for
// CURRENT_TIMESTAMP defaults. A zero time is returned for unknown layouts.
func parseSQLiteTime(value string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (s *SQLiteStore) GetData(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM images WHERE id = ?
	`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image data: %w", err)
	}

	return data, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]ImageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, question, answer, status
		FROM images
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []ImageSummary
	for rows.Next() {
		var img ImageSummary
		if err := rows.Scan(&img.ID, &img.Filename, &img.Question, &img.Answer, &img.Status); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	return images, rows.Err()
}

func (s *SQLiteStore) SetQuestion(ctx context.Context, id int64, question string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET question = ?, answer = NULL, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, question, StatusPending, id)
	if err != nil {
		return fmt.Errorf("failed to set question: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetAnswer(ctx context.Context, id int64, question, answer string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET answer = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND question = ?
	`, answer, StatusReady, id, question)
	if err != nil {
		return false, fmt.Errorf("failed to set answer: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, id int64, question string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND question = ? AND answer IS NULL
	`, StatusFailed, id, question)
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM images WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
