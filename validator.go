package gtfssql

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/transitfeeds/gtfssql/store"
)

// validator handles validation logic for ImportBuilder
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validateFeed checks that the feed path exists and is a directory
func (v *validator) validateFeed(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrFeedNotFound)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFeedNotFound, path)
		}
		return fmt.Errorf("failed to stat feed %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrFeedNotDirectory, path)
	}
	return nil
}

// validateDatabase checks that the destination store can be created
func (v *validator) validateDatabase(path string) error {
	return store.CheckNotExists(path)
}

// validateBatchSize rejects non-positive thresholds
func (v *validator) validateBatchSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}
	return nil
}

// validateDelimiter rejects delimiters the tokenizer cannot split on
func (v *validator) validateDelimiter(r rune) error {
	if r == 0 || r == '"' || r == '\r' || r == '\n' || !utf8.ValidRune(r) || r == utf8.RuneError {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, r)
	}
	return nil
}
