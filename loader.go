package gtfssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// Issue messages written by the loader
const (
	messageEmptyFile   = "File is empty"
	messageLoadAborted = "load aborted: "
	messageBadRecord   = "Unreadable record: "
)

// loader loads one table at a time from the feed directory. Each file is
// read inside a single transaction that commits only at end of file.
type loader struct {
	db            *sql.DB
	feedDir       string
	delimiter     rune
	batchSize     int
	matcher       ColumnMatcher
	reportMissing bool
	detector      *EncodingDetector
	issues        *IssueLog
	metrics       *Metrics
	logger        *zap.Logger
}

// fileLoad carries the state of one table load until its issues can be written.
type fileLoad struct {
	spec    model.TableSpec
	src     model.SourceFile
	report  TableReport
	pending []model.Issue
	line    int
}

func (f *fileLoad) addIssue(issue model.Issue) {
	f.pending = append(f.pending, issue)
}

// load imports the source file of spec. Failures are isolated to this table:
// they are recorded as issues and reported in the returned TableReport.
func (l *loader) load(ctx context.Context, spec model.TableSpec) TableReport {
	// A started file is always finished or rolled back.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	f := &fileLoad{
		spec:   spec,
		report: TableReport{Table: spec.Name, File: spec.FileName()},
	}
	logger := l.logger.With(zap.String("table", spec.Name))

	err := l.loadFile(ctx, f, logger)
	switch {
	case errors.Is(err, ErrFileNotFound):
		f.report.Status = FileMissing
		f.addIssue(model.NewFileNotFoundIssue(spec.FileName()))
		l.metrics.incFileMissing()
		logger.Info("source file not found", zap.String("file", spec.FileName()))
	case errors.Is(err, ErrEmptyFile):
		f.report.Status = FileEmpty
		f.addIssue(model.Issue{Filename: f.src.Name(), Kind: model.IssueWarning, Message: messageEmptyFile})
		logger.Warn("source file is empty", zap.String("file", f.src.Path))
	case err != nil:
		f.report.Status = FileAborted
		f.report.Err = err
		f.report.Rows = 0
		issue := model.Issue{Filename: spec.FileName(), Kind: model.IssueError, Message: messageLoadAborted + err.Error()}
		if f.line > 0 {
			issue.Line = &f.line
		}
		f.addIssue(issue)
		logger.Warn("load aborted", zap.String("file", f.src.Path), zap.Error(err))
	default:
		f.report.Status = FileLoaded
	}
	f.report.Duration = time.Since(start)

	// The transaction is over, so the store connection is free again.
	l.issues.RecordAll(ctx, f.pending)

	if f.report.Status == FileLoaded || f.report.Status == FileEmpty {
		if err := recordFileInfo(ctx, l.db, f.src, f.report.Rows); err != nil {
			// Ignored: the rows are committed and the metadata is auxiliary.
			logger.Warn("file info not recorded", zap.Error(err))
		}
	}

	l.metrics.addRows(spec.Name, f.report.Rows)
	l.metrics.addBatches(spec.Name, f.report.Batches)
	l.metrics.observeLoad(spec.Name, f.report.Status, f.report.Duration)

	if f.report.Status == FileLoaded {
		logger.Info("table loaded",
			zap.String("file", f.src.Path),
			zap.String("charset", f.report.Charset),
			zap.Int("rows", f.report.Rows),
			zap.Int("batches", f.report.Batches),
			zap.Int("skipped", f.report.Skipped),
			zap.Duration("duration", f.report.Duration),
		)
	}
	return f.report
}

// loadFile streams the source file into the table. Any error it returns means
// nothing of this file was committed.
func (l *loader) loadFile(ctx context.Context, f *fileLoad, logger *zap.Logger) (err error) {
	src, err := resolveSourceFile(l.feedDir, f.spec.Name)
	if err != nil {
		return err
	}
	f.src = src
	f.report.File = src.Name()

	charset, err := DetectFileCharset(src, l.detector)
	if err != nil {
		return err
	}
	f.report.Charset = charset.Name
	logger.Debug("loading file",
		zap.String("file", src.Path),
		zap.String("compression", src.Compression.String()),
		zap.String("charset", charset.Name),
		zap.Bool("charset_detected", charset.Detected),
	)

	rows, err := OpenRowSource(src, l.delimiter, charset)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			// Ignored: the file was only read.
			logger.Debug("failed to close source file", zap.String("file", src.Path), zap.Error(closeErr))
		}
	}()

	header, err := rows.ReadHeader()
	if err != nil {
		return err
	}
	f.line = rows.Line()

	positions := resolveColumns(f.spec.Columns, header, l.matcher)
	if l.reportMissing {
		for _, column := range unresolvedColumns(f.spec.Columns, positions) {
			f.addIssue(model.NewColumnNotFoundIssue(src.Name(), column))
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return NewErrorContext("begin transaction", src.Path).WithTable(f.spec.Name).Error(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertQuery(f.spec))
	if err != nil {
		return NewErrorContext("prepare insert", src.Path).WithTable(f.spec.Name).Error(err)
	}
	defer stmt.Close()

	pool := newValuesPool(len(positions))
	pending := newBatch(l.batchSize)
	pending.pool = pool
	inserted := 0
	for row, err := range rows.All() {
		f.line = rows.Line()
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			f.report.Skipped++
			f.addIssue(model.NewRowIssue(src.Name(), model.IssueWarning, rowErr.Line, messageBadRecord+rowErr.Err.Error()))
			continue
		}
		if err != nil {
			return NewErrorContext("read", src.Path).WithTable(f.spec.Name).Error(err)
		}

		pending.add(resolveRowInto(pool.get(), row, positions))
		if pending.full() {
			n, err := pending.flush(ctx, stmt)
			inserted += n
			if err != nil {
				return NewErrorContext("insert", src.Path).WithTable(f.spec.Name).Error(err)
			}
		}
	}

	n, err := pending.flush(ctx, stmt)
	inserted += n
	if err != nil {
		return NewErrorContext("insert", src.Path).WithTable(f.spec.Name).Error(err)
	}

	if err := tx.Commit(); err != nil {
		return NewErrorContext("commit", src.Path).WithTable(f.spec.Name).Error(err)
	}
	f.report.Rows = inserted
	f.report.Batches = pending.batches()
	return nil
}

// insertQuery renders the parameterized insert with one placeholder per loaded column.
func insertQuery(spec model.TableSpec) string {
	columns := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		columns[i] = store.QuoteIdentifier(col)
	}
	return fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		store.QuoteIdentifier(spec.Name),
		strings.Join(columns, ", "),
		strings.Repeat("?, ", len(columns)-1)+"?",
	)
}
