package gtfssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// createIndexQuery renders CREATE INDEX <table>_<column> ON <table> (<column>).
// The statement has no IF NOT EXISTS clause: a same-named index must be
// dropped before the builder runs again.
func createIndexQuery(spec model.IndexSpec) (string, error) {
	for _, name := range []string{spec.Table, spec.Column, spec.Name()} {
		if err := store.ValidateIdentifier(name); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf(
		`CREATE INDEX %s ON %s (%s)`,
		store.QuoteIdentifier(spec.Name()),
		store.QuoteIdentifier(spec.Table),
		store.QuoteIdentifier(spec.Column),
	), nil
}

// createIndexes creates every index after all tables are loaded. It stops at
// the first failure.
func createIndexes(ctx context.Context, db *sql.DB, specs []model.IndexSpec, logger *zap.Logger) error {
	for _, spec := range specs {
		query, err := createIndexQuery(spec)
		if err != nil {
			return NewErrorContext("create index", "").WithTable(spec.Table).Error(err)
		}
		if _, err := db.ExecContext(ctx, query); err != nil {
			return NewErrorContext("create index", "").
				WithTable(spec.Table).
				WithDetails("index " + spec.Name()).
				Error(err)
		}
		logger.Debug("index created", zap.String("index", spec.Name()))
	}
	return nil
}
