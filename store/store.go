package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite
const DriverName = "sqlite"

// bulkLoadPragmas favour load speed over crash durability. An interrupted
// import leaves a file that has to be deleted before the next run.
var bulkLoadPragmas = []string{
	"PRAGMA synchronous = OFF",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA temp_store = MEMORY",
}

// Create creates a new SQLite database at path and returns a handle limited to a
// single connection, so every statement of the import runs on the same writer.
// It fails with ErrDatabaseExists when path already exists.
func Create(ctx context.Context, path string) (*sql.DB, error) {
	if err := CheckNotExists(path); err != nil {
		return nil, err
	}
	return open(ctx, path)
}

// OpenExisting opens an existing database, e.g. to run post-processing again.
func OpenExisting(ctx context.Context, path string) (*sql.DB, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat database %s: %w", path, err)
	}
	return open(ctx, path)
}

// OpenMemory opens a private in-memory database.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	return open(ctx, ":memory:")
}

// CheckNotExists validates path and reports ErrDatabaseExists if something is already there.
func CheckNotExists(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	_, err := os.Stat(path)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat database %s: %w", path, err)
	}
	return nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to database: %w", err), closeErr)
	}

	for _, pragma := range bulkLoadPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			closeErr := db.Close()
			return nil, errors.Join(fmt.Errorf("failed to apply %q: %w", pragma, err), closeErr)
		}
	}
	return db, nil
}
