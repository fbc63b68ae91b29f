package gtfssql

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// writeFeedFile writes content to dir/name and returns the path.
func writeFeedFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// compress encodes data with the given compression type.
func compress(t *testing.T, ct model.CompressionType, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch ct {
	case model.CompressionNone:
		buf.Write(data)
	case model.CompressionGZ:
		w := gzip.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case model.CompressionXZ:
		w, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case model.CompressionZSTD:
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		t.Fatalf("no writer for %s", ct)
	}
	return buf.Bytes()
}

// newSchemaDB opens an in-memory store with every table created.
func newSchemaDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, createSchema(ctx, db, model.Tables(), zap.NewNop()))
	return db
}

// newTestLoader returns a loader over feedDir writing into a fresh schema.
func newTestLoader(t *testing.T, feedDir string, batchSize int) (*loader, *sql.DB) {
	t.Helper()
	db := newSchemaDB(t)
	issues, err := NewIssueLog(context.Background(), db, zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = issues.Close()
	})
	return &loader{
		db:        db,
		feedDir:   feedDir,
		delimiter: ',',
		batchSize: batchSize,
		matcher:   ContainsMatcher,
		detector:  NewEncodingDetector(),
		issues:    issues,
		logger:    zap.NewNop(),
	}, db
}

// countRows returns the number of rows in table.
func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", store.QuoteIdentifier(table))
	require.NoError(t, db.QueryRowContext(context.Background(), query).Scan(&n))
	return n
}

// readIssues returns the issue table contents.
func readIssues(t *testing.T, db *sql.DB) []model.Issue {
	t.Helper()
	issues, err := ReadIssues(context.Background(), db)
	require.NoError(t, err)
	return issues
}

// exec runs statements on db, failing the test on error.
func exec(t *testing.T, db *sql.DB, statements ...string) {
	t.Helper()
	for _, s := range statements {
		_, err := db.ExecContext(context.Background(), s)
		require.NoError(t, err, s)
	}
}
