package gtfssql

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultBatchSize is the number of pending rows that triggers a flush
const DefaultBatchSize = 1000

// statementExecer is the part of *sql.Stmt a Batch needs
type statementExecer interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
}

// batch is a bounded buffer of pending inserts for one table. Flushing runs
// the inserts inside the caller's transaction and does not commit.
type batch struct {
	limit   int
	pending [][]any
	flushed int
	// pool receives the executed rows back; may be nil
	pool *valuesPool
}

func newBatch(limit int) *batch {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	return &batch{
		limit:   limit,
		pending: make([][]any, 0, limit),
	}
}

// add appends one resolved row
func (b *batch) add(values []any) {
	b.pending = append(b.pending, values)
}

// full reports whether the threshold was reached
func (b *batch) full() bool {
	return len(b.pending) >= b.limit
}

func (b *batch) len() int {
	return len(b.pending)
}

// batches returns the number of non-empty flushes so far
func (b *batch) batches() int {
	return b.flushed
}

// flush executes every pending row with stmt and clears the buffer. It returns
// the number of rows executed before the first failure.
func (b *batch) flush(ctx context.Context, stmt statementExecer) (int, error) {
	if len(b.pending) == 0 {
		return 0, nil
	}
	for i, values := range b.pending {
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			b.reset()
			return i, fmt.Errorf("failed to insert record: %w", err)
		}
	}
	n := len(b.pending)
	b.reset()
	b.flushed++
	return n, nil
}

func (b *batch) reset() {
	for _, values := range b.pending {
		b.pool.put(values)
	}
	clear(b.pending)
	b.pending = b.pending[:0]
}
