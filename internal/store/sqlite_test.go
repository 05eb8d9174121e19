package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawing-qa-backend/internal/common"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_CreateAndGetData_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := []byte{0x89, 'P', 'N', 'G', 0x01, 0x02, 0x03}
	id, err := s.Create(ctx, "drawing.png", payload)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	data, err := s.GetData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "drawing.png", rec.Filename)
	assert.Equal(t, StatusNoQuestion, rec.Status)
	assert.False(t, rec.Question.Valid)
	assert.False(t, rec.Answer.Valid)
}

func TestSQLite_Get_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.GetData(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLite_SetQuestion_ClearsAnswer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "a.png", []byte{1})
	require.NoError(t, err)

	require.NoError(t, s.SetQuestion(ctx, id, "first question"))
	updated, err := s.SetAnswer(ctx, id, "first question", "first answer")
	require.NoError(t, err)
	require.True(t, updated)

	require.NoError(t, s.SetQuestion(ctx, id, "second question"))

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second question", rec.Question.String)
	assert.False(t, rec.Answer.Valid, "answer must be cleared by a new question")
	assert.Equal(t, StatusPending, rec.Status)
}

func TestSQLite_SetAnswer_StaleQuestionDiscarded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "a.png", []byte{1})
	require.NoError(t, err)
	require.NoError(t, s.SetQuestion(ctx, id, "new question"))

	updated, err := s.SetAnswer(ctx, id, "old question", "stale answer")
	require.NoError(t, err)
	assert.False(t, updated)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, rec.Answer.Valid)
	assert.Equal(t, StatusPending, rec.Status)
}

func TestSQLite_SetAnswer_DeletedIDAffectsNothing(t *testing.T) {
	s := newTestStore(t)

	updated, err := s.SetAnswer(context.Background(), 99, "q", "a")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestSQLite_MarkFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "a.png", []byte{1})
	require.NoError(t, err)
	require.NoError(t, s.SetQuestion(ctx, id, "q"))

	require.NoError(t, s.MarkFailed(ctx, id, "q"))

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.False(t, rec.Answer.Valid)

	// Failure for a superseded question leaves the new pending state alone.
	require.NoError(t, s.SetQuestion(ctx, id, "newer q"))
	require.NoError(t, s.MarkFailed(ctx, id, "q"))

	rec, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
}

func TestSQLite_Delete_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "a.png", []byte{1})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Deleting again, and deleting an id that never existed, are no-ops.
	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, 12345))
}

func TestSQLite_List_NewestFirstWithoutPayload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "first.png", []byte{1})
	require.NoError(t, err)
	second, err := s.Create(ctx, "second.png", []byte{2})
	require.NoError(t, err)
	require.NoError(t, s.SetQuestion(ctx, second, "q"))

	images, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, second, images[0].ID)
	assert.Equal(t, first, images[1].ID)
	assert.Equal(t, "second.png", images[0].Filename)
	assert.Equal(t, "q", images[0].Question.String)
	assert.Equal(t, StatusPending, images[0].Status)
	assert.Equal(t, StatusNoQuestion, images[1].Status)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "dsn")
	assert.Error(t, err)
}
