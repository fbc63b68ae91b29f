package store

import (
	"fmt"
	"strings"
)

// MaxIdentifierLength defines the maximum length of a table, column or index name
const MaxIdentifierLength = 128

// ValidatePath rejects empty paths and paths carrying a null byte
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidPath
	}
	if strings.Contains(path, "\x00") {
		return ErrInvalidPath
	}
	return nil
}

// ValidateIdentifier checks that name is a plain SQL identifier: letters, digits and
// underscores, not starting with a digit.
func ValidateIdentifier(name string) error {
	if name == "" || len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// QuoteIdentifier quotes name for use in SQL, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
