package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"drawing-qa-backend/internal/common"
)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool to the given database. Schema
// management is handled separately by the migrator.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle; used by tests.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, filename string, data []byte) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO images (filename, data, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`, filename, data, StatusNoQuestion).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create image: %w", err)
	}

	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*ImageRecord, error) {
	var rec ImageRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, data, question, answer, status, created_at, updated_at
		FROM images
		WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.Filename, &rec.Data, &rec.Question,
		&rec.Answer, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &rec, nil
}

func (s *PostgresStore) GetData(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM images WHERE id = $1
	`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image data: %w", err)
	}

	return data, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]ImageSummary, error) {
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

func (s *PostgresStore) SetQuestion(ctx context.Context, id int64, question string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET question = $1, answer = NULL, status = $2, updated_at = NOW()
		WHERE id = $3
	`, question, StatusPending, id)
	if err != nil {
		return fmt.Errorf("failed to set question: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetAnswer(ctx context.Context, id int64, question, answer string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET answer = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND question = $4
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

func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, question string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND question = $3 AND answer IS NULL
	`, StatusFailed, id, question)
	if err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM images WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
