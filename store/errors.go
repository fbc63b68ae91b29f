package store

import "errors"

// Predefined errors
var (
	// ErrDatabaseExists is returned when the destination database file already exists
	ErrDatabaseExists = errors.New("gtfssql store: database already exists")

	// ErrInvalidPath is returned when a path is empty or contains a null byte
	ErrInvalidPath = errors.New("gtfssql store: invalid path")

	// ErrInvalidIdentifier is returned when an SQL identifier is invalid
	ErrInvalidIdentifier = errors.New("gtfssql store: invalid SQL identifier")
)
