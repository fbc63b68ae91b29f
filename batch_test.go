package gtfssql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStmt struct {
	calls  [][]any
	failAt int
}

func (s *recordingStmt) ExecContext(_ context.Context, args ...any) (sql.Result, error) {
	if s.failAt > 0 && len(s.calls)+1 == s.failAt {
		return nil, errors.New("constraint failed")
	}
	s.calls = append(s.calls, args)
	return nil, nil
}

func TestBatch(t *testing.T) {
	t.Parallel()

	t.Run("flushes at the threshold", func(t *testing.T) {
		t.Parallel()

		b := newBatch(2)
		stmt := &recordingStmt{}

		b.add([]any{"a"})
		assert.False(t, b.full())
		b.add([]any{"b"})
		assert.True(t, b.full())

		n, err := b.flush(context.Background(), stmt)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 0, b.len())
		assert.Equal(t, 1, b.batches())
		assert.Equal(t, [][]any{{"a"}, {"b"}}, stmt.calls)
	})

	t.Run("empty flush is not a batch", func(t *testing.T) {
		t.Parallel()

		b := newBatch(10)
		n, err := b.flush(context.Background(), &recordingStmt{})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, b.batches())
	})

	t.Run("failure clears the buffer", func(t *testing.T) {
		t.Parallel()

		b := newBatch(3)
		stmt := &recordingStmt{failAt: 2}
		b.add([]any{1})
		b.add([]any{2})
		b.add([]any{3})

		n, err := b.flush(context.Background(), stmt)
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 0, b.len())
	})

	t.Run("non-positive limit uses the default", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, DefaultBatchSize, newBatch(0).limit)
		assert.Equal(t, DefaultBatchSize, newBatch(-5).limit)
	})
}
