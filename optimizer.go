package gtfssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

// Optimizer phase names used in logs and metrics
const (
	PhaseLastStop = "last_stop"
	PhasePrune    = "prune_orphans"
	PhaseCompact  = "compact"
	PhaseIndexes  = "indexes"
)

// OptimizeReport summarizes the post-processing pass.
type OptimizeReport struct {
	// TripsProcessed is the number of trips a last stop update ran for
	TripsProcessed int
	// StopsPruned is the number of stops no stop time references
	StopsPruned int64
}

// Optimizer post-processes a loaded store: it derives the last stop of every
// trip, prunes unreferenced stops, then compacts the file and refreshes the
// planner statistics. Each phase commits on its own.
type Optimizer struct {
	db        *sql.DB
	batchSize int
	logger    *zap.Logger
	metrics   *Metrics
}

// NewOptimizer creates an optimizer that updates trips in batches of batchSize.
func NewOptimizer(db *sql.DB, batchSize int, logger *zap.Logger, metrics *Metrics) *Optimizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{db: db, batchSize: batchSize, logger: logger, metrics: metrics}
}

// Optimize runs the three phases in order and stops at the first failure.
func (o *Optimizer) Optimize(ctx context.Context) (OptimizeReport, error) {
	var report OptimizeReport

	flagged, err := o.timed(PhaseLastStop, func() (int64, error) {
		n, err := o.DeriveLastStop(ctx)
		return int64(n), err
	})
	if err != nil {
		return report, err
	}
	report.TripsProcessed = int(flagged)

	pruned, err := o.timed(PhasePrune, func() (int64, error) {
		return o.PruneOrphanStops(ctx)
	})
	if err != nil {
		return report, err
	}
	report.StopsPruned = pruned

	if _, err := o.timed(PhaseCompact, func() (int64, error) {
		return 0, o.Compact(ctx)
	}); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Optimizer) timed(phase string, fn func() (int64, error)) (int64, error) {
	start := time.Now()
	n, err := fn()
	elapsed := time.Since(start)
	o.metrics.observePhase(phase, elapsed)
	if err != nil {
		return n, NewErrorContext("optimize", "").WithDetails(phase).Error(err)
	}
	o.logger.Info("optimizer phase finished",
		zap.String("phase", phase),
		zap.Int64("affected", n),
		zap.Duration("duration", elapsed),
	)
	return n, nil
}

// DeriveLastStop flags, for every trip in trips, the stop time with the
// highest numeric stop_sequence. Exactly one row per trip is flagged; among
// ties the earliest inserted row wins. Trip ids are paged in batches and all
// updates commit together.
func (o *Optimizer) DeriveLastStop(ctx context.Context) (flagged int, err error) {
	stopTimes := store.QuoteIdentifier(model.TableStopTimes)
	trips := store.QuoteIdentifier(model.TableTrips)
	lastStop := store.QuoteIdentifier(model.LastStopColumn)

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
			}
		}
	}()

	reset := fmt.Sprintf(`UPDATE %s SET %s = 0 WHERE %s <> 0`, stopTimes, lastStop, lastStop)
	if _, err := tx.ExecContext(ctx, reset); err != nil {
		return 0, fmt.Errorf("failed to reset %s: %w", model.LastStopColumn, err)
	}

	update, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`UPDATE %[1]s SET %[2]s = 1 WHERE rowid = (
			SELECT rowid FROM %[1]s WHERE "trip_id" = ?
			ORDER BY CAST("stop_sequence" AS INTEGER) DESC, rowid ASC LIMIT 1
		)`,
		stopTimes, lastStop,
	))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare last stop update: %w", err)
	}
	defer update.Close()

	page := fmt.Sprintf(
		`SELECT DISTINCT "trip_id" FROM %s
		WHERE "trip_id" IS NOT NULL AND (? = 0 OR "trip_id" > ?)
		ORDER BY "trip_id" LIMIT ?`,
		trips,
	)

	pending := newBatch(o.batchSize)
	started, after := 0, ""
	for {
		ids, err := o.tripPage(ctx, tx, page, started, after)
		if err != nil {
			return flagged, err
		}
		for _, id := range ids {
			pending.add([]any{id})
			if pending.full() {
				n, err := pending.flush(ctx, update)
				flagged += n
				if err != nil {
					return flagged, err
				}
			}
		}
		if len(ids) < o.batchSize {
			break
		}
		started, after = 1, ids[len(ids)-1]
	}

	n, err := pending.flush(ctx, update)
	flagged += n
	if err != nil {
		return flagged, err
	}

	if err := tx.Commit(); err != nil {
		return flagged, fmt.Errorf("failed to commit last stop update: %w", err)
	}
	return flagged, nil
}

// tripPage reads the next page of trip ids after the given one. The cursor is
// closed before any update runs on the transaction.
func (o *Optimizer) tripPage(ctx context.Context, tx *sql.Tx, query string, started int, after string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, started, after, o.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, o.batchSize)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trips: %w", err)
	}
	return ids, nil
}

// PruneOrphanStops deletes the stops no stop time references, including
// stops without an id.
func (o *Optimizer) PruneOrphanStops(ctx context.Context) (pruned int64, err error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
			}
		}
	}()

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE "stop_id" IS NULL OR "stop_id" NOT IN (
			SELECT DISTINCT "stop_id" FROM %s WHERE "stop_id" IS NOT NULL
		)`,
		store.QuoteIdentifier(model.TableStops),
		store.QuoteIdentifier(model.TableStopTimes),
	)
	result, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prune stops: %w", err)
	}
	pruned, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned stops: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stop pruning: %w", err)
	}
	return pruned, nil
}

// Compact reclaims free pages and refreshes the query planner statistics.
// VACUUM cannot run inside a transaction, so both statements run on the handle.
func (o *Optimizer) Compact(ctx context.Context) error {
	if _, err := o.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}
	if _, err := o.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze: %w", err)
	}
	return nil
}
