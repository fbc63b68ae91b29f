package gtfssql

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/transitfeeds/gtfssql/store"
)

// Setup errors stop an import before any table is touched.
var (
	// ErrFeedNotFound indicates the feed path does not exist
	ErrFeedNotFound = errors.New("gtfssql: feed path not found")

	// ErrFeedNotDirectory indicates the feed path is not a directory
	ErrFeedNotDirectory = errors.New("gtfssql: feed path must be a directory")

	// ErrDatabaseExists indicates the destination database already exists
	ErrDatabaseExists = store.ErrDatabaseExists

	// ErrInvalidBatchSize indicates a non-positive batch size
	ErrInvalidBatchSize = errors.New("gtfssql: batch size must be positive")

	// ErrInvalidDelimiter indicates an unusable field delimiter
	ErrInvalidDelimiter = errors.New("gtfssql: invalid field delimiter")

	// ErrNotBuilt indicates Run was called before a successful Build
	ErrNotBuilt = errors.New("gtfssql: builder not built, call Build() first")
)

// ErrFileNotFound indicates a table's source file is absent from the feed.
// It wraps fs.ErrNotExist so either can be checked with errors.Is.
var ErrFileNotFound = fmt.Errorf("gtfssql: source file not found: %w", fs.ErrNotExist)

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	var parts []string
	parts = append(parts, fmt.Sprintf("gtfssql: %s failed", ec.Operation))

	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}

	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return fmt.Errorf("%s", context)
}
