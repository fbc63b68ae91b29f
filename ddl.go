package gtfssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// auxiliaryTables are created next to the feed tables.
var auxiliaryTables = []struct {
	name    string
	columns []string
}{
	{
		name:    model.FileInfoTable,
		columns: []string{`"filename" TEXT`, `"filesize" INTEGER`, `"num_records" INTEGER`},
	},
	{
		name:    model.IssuesTable,
		columns: []string{`"filename" TEXT`, `"type" TEXT`, `"column" TEXT`, `"line" INTEGER`, `"message" TEXT`},
	},
}

// createTableQuery renders the CREATE TABLE statement of spec. Loaded columns
// are TEXT; derived columns carry their own definition.
func createTableQuery(spec model.TableSpec) (string, error) {
	if err := store.ValidateIdentifier(spec.Name); err != nil {
		return "", err
	}
	columns := make([]string, 0, len(spec.Columns)+len(spec.DerivedColumns))
	for _, col := range spec.Columns {
		if err := store.ValidateIdentifier(col); err != nil {
			return "", err
		}
		columns = append(columns, store.QuoteIdentifier(col)+" TEXT")
	}
	for _, col := range spec.DerivedColumns {
		if err := store.ValidateIdentifier(col.Name); err != nil {
			return "", err
		}
		columns = append(columns, store.QuoteIdentifier(col.Name)+" "+col.Definition)
	}
	return fmt.Sprintf(
		`CREATE TABLE %s (%s)`,
		store.QuoteIdentifier(spec.Name),
		strings.Join(columns, ", "),
	), nil
}

// createSchema creates every feed table and the auxiliary tables in one transaction.
func createSchema(ctx context.Context, db *sql.DB, specs []model.TableSpec, logger *zap.Logger) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() // the original error is more useful than a rollback failure
		}
	}()

	for _, spec := range specs {
		query, err := createTableQuery(spec)
		if err != nil {
			return NewErrorContext("create table", "").WithTable(spec.Name).Error(err)
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return NewErrorContext("create table", "").WithTable(spec.Name).Error(err)
		}
		logger.Debug("table created", zap.String("table", spec.Name), zap.Int("columns", len(spec.Columns)))
	}

	for _, aux := range auxiliaryTables {
		query := fmt.Sprintf(`CREATE TABLE %s (%s)`, store.QuoteIdentifier(aux.name), strings.Join(aux.columns, ", "))
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return NewErrorContext("create table", "").WithTable(aux.name).Error(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// recordFileInfo stores the ingestion metadata of a committed file.
func recordFileInfo(ctx context.Context, db *sql.DB, src model.SourceFile, records int) error {
	query := fmt.Sprintf(
		`INSERT INTO %s ("filename", "filesize", "num_records") VALUES (?, ?, ?)`,
		store.QuoteIdentifier(model.FileInfoTable),
	)
	if _, err := db.ExecContext(ctx, query, src.Name(), src.Size, records); err != nil {
		return fmt.Errorf("failed to record file info for %s: %w", src.Name(), err)
	}
	return nil
}
