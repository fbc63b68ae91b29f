package gtfssql

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// Type aliases from the model package
type (
	// TableSpec declares one destination table
	TableSpec = model.TableSpec
	// IndexSpec declares one secondary index
	IndexSpec = model.IndexSpec
	// Issue is one recorded import problem
	Issue = model.Issue
	// IssueKind classifies an Issue
	IssueKind = model.IssueKind
)

// Re-export constants for easier use
const (
	// IssueError marks a problem that prevented data from loading
	IssueError = model.IssueError
	// IssueWarning marks a problem that degraded but did not prevent loading
	IssueWarning = model.IssueWarning
)

// Tables returns the GTFS table definitions in load order.
var Tables = model.Tables

// Indexes returns the secondary index definitions in creation order.
var Indexes = model.Indexes

// Import loads the GTFS feed in feedDir into a new SQLite database at
// databasePath with the default settings.
//
// Example usage:
//
//	report, err := gtfssql.Import("feeds/metro", "metro.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, t := range report.Tables {
//		fmt.Printf("%s: %d rows (%s)\n", t.Table, t.Rows, t.Status)
//	}
func Import(feedDir, databasePath string) (*Report, error) {
	return ImportContext(context.Background(), feedDir, databasePath)
}

// ImportContext is Import with a context. Cancellation takes effect between
// two table loads.
func ImportContext(ctx context.Context, feedDir, databasePath string) (*Report, error) {
	builder, err := NewBuilder().
		SetFeed(feedDir).
		SetDatabase(databasePath).
		Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Run(ctx)
}

// OptimizeDatabase runs the post-processing pass again on an existing database,
// for example one imported with SkipOptimize.
func OptimizeDatabase(ctx context.Context, databasePath string, opts ...OptimizeOption) (OptimizeReport, error) {
	cfg := optimizeConfig{batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := store.OpenExisting(ctx, databasePath)
	if err != nil {
		return OptimizeReport{}, NewErrorContext("open database", databasePath).Error(err)
	}
	defer db.Close()

	report, err := NewOptimizer(db, cfg.batchSize, cfg.logger, cfg.metrics).Optimize(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to optimize %s: %w", databasePath, err)
	}
	return report, nil
}

// OptimizeOption configures OptimizeDatabase
type OptimizeOption func(*optimizeConfig)

type optimizeConfig struct {
	batchSize int
	logger    *zap.Logger
	metrics   *Metrics
}

// WithOptimizeBatchSize sets how many trips are updated per batch
func WithOptimizeBatchSize(size int) OptimizeOption {
	return func(c *optimizeConfig) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

// WithOptimizeLogger sets the logger of the pass
func WithOptimizeLogger(logger *zap.Logger) OptimizeOption {
	return func(c *optimizeConfig) {
		c.logger = logger
	}
}

// WithOptimizeMetrics sets the collectors updated by the pass
func WithOptimizeMetrics(metrics *Metrics) OptimizeOption {
	return func(c *optimizeConfig) {
		c.metrics = metrics
	}
}
