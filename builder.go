package gtfssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// ImportBuilder configures and runs one import of a GTFS feed into a new
// SQLite database. Use NewBuilder to create a new instance, then chain method
// calls to configure it.
//
// The typical usage pattern is:
//
//	builder, err := gtfssql.NewBuilder().
//		SetFeed("feeds/metro").
//		SetDatabase("metro.db").
//		Build(ctx)
//	if err != nil {
//		return err
//	}
//	report, err := builder.Run(ctx)
type ImportBuilder struct {
	// feedDir is the directory holding the <table>.txt files
	feedDir string
	// databasePath is the SQLite file to create
	databasePath string
	// batchSize is the number of rows per insert batch
	batchSize int
	// delimiter separates fields in the source files
	delimiter rune
	// matcher maps schema columns to header positions
	matcher ColumnMatcher
	// reportMissing records a warning per schema column absent from a header
	reportMissing bool
	// optimize runs the post-processing pass after the indexes are built
	optimize bool
	logger   *zap.Logger
	metrics  *Metrics
	// built is set by a successful Build
	built bool
}

// NewBuilder creates a builder with the default settings: batches of
// DefaultBatchSize rows, comma separated fields, substring header matching,
// no missing-column warnings and post-processing enabled.
func NewBuilder() *ImportBuilder {
	return &ImportBuilder{
		batchSize: DefaultBatchSize,
		delimiter: ',',
		matcher:   ContainsMatcher,
		optimize:  true,
		logger:    zap.NewNop(),
	}
}

// SetFeed sets the feed directory.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetFeed(dir string) *ImportBuilder {
	b.feedDir = dir
	b.built = false
	return b
}

// SetDatabase sets the path of the SQLite database to create. The file must
// not exist yet.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetDatabase(path string) *ImportBuilder {
	b.databasePath = path
	b.built = false
	return b
}

// SetBatchSize sets how many rows are buffered before they are inserted.
// All batches of a file still commit together at end of file.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetBatchSize(size int) *ImportBuilder {
	b.batchSize = size
	b.built = false
	return b
}

// SetDelimiter sets the field delimiter of the source files.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetDelimiter(r rune) *ImportBuilder {
	b.delimiter = r
	b.built = false
	return b
}

// SetColumnMatcher replaces the header matching strategy, e.g. with ExactMatcher.
// A nil matcher restores ContainsMatcher.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetColumnMatcher(matcher ColumnMatcher) *ImportBuilder {
	if matcher == nil {
		matcher = ContainsMatcher
	}
	b.matcher = matcher
	return b
}

// ReportMissingColumns records a WARNING issue for every schema column that
// a file header lacks. Such columns are loaded as NULL either way.
// Returns the builder for method chaining.
func (b *ImportBuilder) ReportMissingColumns(enabled bool) *ImportBuilder {
	b.reportMissing = enabled
	return b
}

// SkipOptimize disables the post-processing pass: no last stop derivation,
// no stop pruning and no compaction.
// Returns the builder for method chaining.
func (b *ImportBuilder) SkipOptimize(skip bool) *ImportBuilder {
	b.optimize = !skip
	return b
}

// SetLogger sets the logger. A nil logger discards everything.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetLogger(logger *zap.Logger) *ImportBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b.logger = logger
	return b
}

// SetMetrics sets the collectors updated during the run.
// Returns the builder for method chaining.
func (b *ImportBuilder) SetMetrics(metrics *Metrics) *ImportBuilder {
	b.metrics = metrics
	return b
}

// Build validates the configuration. It must succeed before Run.
//
// Build fails with ErrFeedNotFound or ErrFeedNotDirectory for a bad feed
// path, ErrDatabaseExists when the destination already exists,
// ErrInvalidBatchSize or ErrInvalidDelimiter for bad settings.
//
// Returns the same builder instance for method chaining, or an error if validation fails.
func (b *ImportBuilder) Build(_ context.Context) (*ImportBuilder, error) {
	v := newValidator()
	if err := v.validateFeed(b.feedDir); err != nil {
		return nil, err
	}
	if err := v.validateDatabase(b.databasePath); err != nil {
		return nil, err
	}
	if err := v.validateBatchSize(b.batchSize); err != nil {
		return nil, err
	}
	if err := v.validateDelimiter(b.delimiter); err != nil {
		return nil, err
	}
	b.built = true
	return b, nil
}

// Run executes the import: it creates the database and its tables, loads every
// table in schema order, builds the indexes and finally post-processes the
// store.
//
// Per-file problems never stop the run. A missing file, an unreadable record
// or a rolled back file load is recorded in the issue table and in the
// returned Report. Run returns an error only when the store cannot be set up,
// when index creation or post-processing fails, or when ctx is cancelled. A
// cancellation is honored between two table loads, never in the middle of one.
// The report is returned with whatever was done so far in every case.
func (b *ImportBuilder) Run(ctx context.Context) (report *Report, err error) {
	if !b.built {
		return nil, ErrNotBuilt
	}

	start := time.Now()
	report = &Report{RunID: uuid.New()}
	logger := b.logger.With(zap.String("run_id", report.RunID.String()))
	defer func() {
		report.Duration = time.Since(start)
	}()

	logger.Info("import started",
		zap.String("feed", b.feedDir),
		zap.String("database", b.databasePath),
		zap.Int("batch_size", b.batchSize),
	)

	db, err := store.Create(ctx, b.databasePath)
	if err != nil {
		return report, NewErrorContext("create database", b.databasePath).Error(err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database: %w", closeErr))
		}
	}()

	if err := b.run(ctx, db, report, logger); err != nil {
		logger.Error("import failed", zap.Error(err))
		return report, err
	}

	logger.Info("import finished",
		zap.Int("rows", report.RowsLoaded()),
		zap.Int("errors", report.Issues.Errors),
		zap.Int("warnings", report.Issues.Warnings),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (b *ImportBuilder) run(ctx context.Context, db *sql.DB, report *Report, logger *zap.Logger) error {
	tables := model.Tables()
	if err := createSchema(ctx, db, tables, logger); err != nil {
		return err
	}

	issues, err := NewIssueLog(ctx, db, logger, b.metrics)
	if err != nil {
		return err
	}
	defer func() {
		report.Issues = issues.Counts()
		_ = issues.Close() // statement on a handle that is about to close
	}()

	l := &loader{
		db:            db,
		feedDir:       b.feedDir,
		delimiter:     b.delimiter,
		batchSize:     b.batchSize,
		matcher:       b.matcher,
		reportMissing: b.reportMissing,
		detector:      NewEncodingDetector(),
		issues:        issues,
		metrics:       b.metrics,
		logger:        logger,
	}
	for _, spec := range tables {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled before %s: %w", spec.Name, err)
		}
		report.Tables = append(report.Tables, l.load(ctx, spec))
	}

	indexStart := time.Now()
	if err := createIndexes(ctx, db, model.Indexes(), logger); err != nil {
		return err
	}
	b.metrics.observePhase(PhaseIndexes, time.Since(indexStart))
	logger.Info("indexes created", zap.Int("count", len(model.Indexes())))

	if !b.optimize {
		return nil
	}
	optimized, err := NewOptimizer(db, b.batchSize, logger, b.metrics).Optimize(ctx)
	report.Optimize = &optimized
	return err
}
