package gtfssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// IssueLog appends issues to the issue table. Recording never fails the caller.
type IssueLog struct {
	stmt    *sql.Stmt
	logger  *zap.Logger
	metrics *Metrics
	counts  IssueCounts
}

// NewIssueLog prepares the insert into the issue table, which must already exist.
func NewIssueLog(ctx context.Context, db *sql.DB, logger *zap.Logger, metrics *Metrics) (*IssueLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	query := fmt.Sprintf(
		`INSERT INTO %s ("filename", "type", "column", "line", "message") VALUES (?, ?, ?, ?, ?)`,
		store.QuoteIdentifier(model.IssuesTable),
	)
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare issue insert: %w", err)
	}
	return &IssueLog{stmt: stmt, logger: logger, metrics: metrics}, nil
}

// Record appends one issue. It must not be called while a transaction holds
// the store's only connection.
func (l *IssueLog) Record(ctx context.Context, issue model.Issue) {
	switch issue.Kind {
	case model.IssueError:
		l.counts.Errors++
	default:
		l.counts.Warnings++
	}
	l.metrics.incIssue(issue.Kind.String())

	var column, line any
	if issue.Column != nil {
		column = *issue.Column
	}
	if issue.Line != nil {
		line = *issue.Line
	}

	_, err := l.stmt.ExecContext(ctx, issue.Filename, issue.Kind.String(), column, line, issue.Message)
	if err != nil {
		// Ignored: a lost issue row is not worth aborting a load that succeeded.
		l.logger.Debug("issue not recorded",
			zap.Stringer("issue", issue),
			zap.Error(err),
		)
	}
}

// RecordAll appends issues in order.
func (l *IssueLog) RecordAll(ctx context.Context, issues []model.Issue) {
	for _, issue := range issues {
		l.Record(ctx, issue)
	}
}

// Counts returns the number of issues recorded so far, including lost ones.
func (l *IssueLog) Counts() IssueCounts {
	return l.counts
}

// Close releases the prepared statement
func (l *IssueLog) Close() error {
	return l.stmt.Close()
}

// ReadIssues returns every row of the issue table in insertion order.
func ReadIssues(ctx context.Context, db *sql.DB) ([]model.Issue, error) {
	query := fmt.Sprintf(
		`SELECT "filename", "type", "column", "line", "message" FROM %s ORDER BY rowid`,
		store.QuoteIdentifier(model.IssuesTable),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		var (
			issue  model.Issue
			kind   string
			column sql.NullString
			line   sql.NullInt64
		)
		if err := rows.Scan(&issue.Filename, &kind, &column, &line, &issue.Message); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issue.Kind = model.IssueKind(kind)
		if column.Valid {
			issue.Column = &column.String
		}
		if line.Valid {
			n := int(line.Int64)
			issue.Line = &n
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read issues: %w", err)
	}
	return issues, nil
}
