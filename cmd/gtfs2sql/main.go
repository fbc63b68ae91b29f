// Command gtfs2sql imports a GTFS feed directory into a new SQLite database.
//
//	gtfs2sql -g feeds/metro -s metro.db
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/transitfeeds/gtfssql"
	"github.com/transitfeeds/gtfssql/internal/config"
)

// Exit codes.
const (
	exitOK            = 0
	exitMissingFeed   = 1
	exitMissingSQLite = 2
	exitSetup         = 3
	exitImport        = 4
)

const metricsPushTimeout = 10 * time.Second

// exitError carries the process exit code of a failed run
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

type options struct {
	configPath     string
	feed           string
	database       string
	batchSize      int
	delimiter      string
	exactColumns   bool
	reportMissing  bool
	noOptimize     bool
	logLevel       string
	metricsPushURL string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "gtfs2sql:", err)

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	// flag parsing errors
	return exitMissingFeed
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "gtfs2sql -g <feed directory> -s <sqlite file>",
		Short:         "Import a GTFS feed into a new SQLite database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.feed, "feed", "g", "", "GTFS feed directory (required)")
	flags.StringVarP(&opts.database, "sqlite", "s", "", "SQLite database file to create (required)")
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.IntVar(&opts.batchSize, "batch-size", gtfssql.DefaultBatchSize, "rows per insert batch")
	flags.StringVar(&opts.delimiter, "delimiter", ",", `field delimiter ("tab" for a tab)`)
	flags.BoolVar(&opts.exactColumns, "exact-columns", false, "match header names exactly instead of by substring")
	flags.BoolVar(&opts.reportMissing, "report-missing-columns", false, "record a warning for every column absent from a header")
	flags.BoolVar(&opts.noOptimize, "no-optimize", false, "skip last-stop derivation, orphan pruning and compaction")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.metricsPushURL, "metrics-push-url", "", "Prometheus Pushgateway URL")

	return cmd
}

// resolveConfig merges the configuration file with the flags that were set
// explicitly on the command line.
func resolveConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, &exitError{code: exitSetup, err: err}
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("feed") {
		cfg.Feed = opts.feed
	}
	if flags.Changed("sqlite") {
		cfg.Database = opts.database
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if flags.Changed("delimiter") {
		cfg.Delimiter = opts.delimiter
	}
	if flags.Changed("exact-columns") && opts.exactColumns {
		cfg.ColumnMatch = config.MatchExact
	}
	if flags.Changed("report-missing-columns") {
		cfg.ReportMissingColumns = opts.reportMissing
	}
	if flags.Changed("no-optimize") {
		optimize := !opts.noOptimize
		cfg.Optimize = &optimize
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("metrics-push-url") {
		cfg.Metrics.PushURL = opts.metricsPushURL
	}

	if cfg.Feed == "" {
		return nil, &exitError{code: exitMissingFeed, err: errors.New("a feed directory is required (-g)")}
	}
	if cfg.Database == "" {
		return nil, &exitError{code: exitMissingSQLite, err: errors.New("a SQLite database file is required (-s)")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &exitError{code: exitSetup, err: err}
	}
	return cfg, nil
}

// newLogger writes JSON logs to w, or console logs at debug level.
func newLogger(level zapcore.Level, w io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if level == zapcore.DebugLevel {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level))
}

func runImport(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	level, err := cfg.Level()
	if err != nil {
		return &exitError{code: exitSetup, err: err}
	}
	delimiter, err := cfg.DelimiterRune()
	if err != nil {
		return &exitError{code: exitSetup, err: err}
	}

	logger := newLogger(level, stderr)
	defer func() {
		_ = logger.Sync() // Ignore sync errors on stderr
	}()

	var metrics *gtfssql.Metrics
	if cfg.Metrics.PushURL != "" {
		if metrics, err = gtfssql.NewMetrics(); err != nil {
			return &exitError{code: exitSetup, err: err}
		}
	}

	builder, err := gtfssql.NewBuilder().
		SetFeed(cfg.Feed).
		SetDatabase(cfg.Database).
		SetBatchSize(cfg.BatchSize).
		SetDelimiter(delimiter).
		SetColumnMatcher(cfg.Matcher()).
		ReportMissingColumns(cfg.ReportMissingColumns).
		SkipOptimize(!cfg.OptimizeEnabled()).
		SetLogger(logger).
		SetMetrics(metrics).
		Build(ctx)
	if err != nil {
		return &exitError{code: exitSetup, err: err}
	}

	report, runErr := builder.Run(ctx)
	if metrics != nil {
		pushMetrics(ctx, metrics, cfg.Metrics, logger)
	}
	if runErr != nil {
		code := exitSetup
		if report != nil && len(report.Tables) > 0 {
			code = exitImport
		}
		return &exitError{code: code, err: runErr}
	}

	printReport(stdout, report)
	return nil
}

func pushMetrics(ctx context.Context, metrics *gtfssql.Metrics, cfg config.MetricsConfig, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
	defer cancel()
	if err := metrics.Push(ctx, cfg.PushURL, cfg.Job); err != nil {
		logger.Warn("metrics push failed", zap.String("url", cfg.PushURL), zap.Error(err))
	}
}

func printReport(w io.Writer, report *gtfssql.Report) {
	for _, t := range report.Tables {
		fmt.Fprintf(w, "%-16s %-8s %8d\n", t.Table, t.Status, t.Rows)
	}
	fmt.Fprintf(w, "issues: %d errors, %d warnings\n", report.Issues.Errors, report.Issues.Warnings)
	if report.Optimize != nil {
		fmt.Fprintf(w, "optimized: %d trips, %d stops pruned\n", report.Optimize.TripsProcessed, report.Optimize.StopsPruned)
	}
	fmt.Fprintf(w, "done in %s\n", report.Duration.Round(time.Millisecond))
}
