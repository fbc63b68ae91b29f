package gtfssql

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitfeeds/gtfssql/domain/model"
	"github.com/transitfeeds/gtfssql/store"
)

func openImported(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := store.OpenExisting(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestImport_StopsWithoutAgency(t *testing.T) {
	t.Parallel()

	feed := t.TempDir()
	writeFeedFile(t, feed, "stops.txt", "stop_id,stop_name\nS1,Main St\nS2,2nd Ave\n")
	dbPath := filepath.Join(t.TempDir(), "gtfs.db")

	builder, err := NewBuilder().SetFeed(feed).SetDatabase(dbPath).SkipOptimize(true).Build(context.Background())
	require.NoError(t, err)
	report, err := builder.Run(context.Background())
	require.NoError(t, err)

	db := openImported(t, dbPath)

	assert.Equal(t, 2, countRows(t, db, model.TableStops))
	assert.Zero(t, countRows(t, db, model.TableAgency))

	var name string
	var code sql.NullString
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT stop_name, stop_code FROM stops WHERE stop_id = 'S2'`).Scan(&name, &code))
	assert.Equal(t, "2nd Ave", name)
	assert.False(t, code.Valid)

	var agencyErrors int
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM _gtfs_issues WHERE filename = 'agency.txt' AND type = 'ERROR'`).Scan(&agencyErrors))
	assert.Equal(t, 1, agencyErrors)

	// Every other table is missing too: one ERROR each, nothing else.
	issues := readIssues(t, db)
	assert.Len(t, issues, len(model.Tables())-1)
	assert.Equal(t, IssueCounts{Errors: len(model.Tables()) - 1}, report.Issues)

	stops, ok := report.Table(model.TableStops)
	require.True(t, ok)
	assert.Equal(t, FileLoaded, stops.Status)
	assert.Equal(t, 2, stops.Rows)
	agency, ok := report.Table(model.TableAgency)
	require.True(t, ok)
	assert.Equal(t, FileMissing, agency.Status)
	assert.Equal(t, 2, report.RowsLoaded())
	assert.Nil(t, report.Optimize)
	assert.Len(t, report.Tables, len(model.Tables()))
}

func TestImport_FullPipeline(t *testing.T) {
	t.Parallel()

	feed := t.TempDir()
	writeFeedFile(t, feed, "agency.txt", "agency_id,agency_name,agency_url,agency_timezone\nM,Metro,https://metro.example,Europe/Paris\n")
	writeFeedFile(t, feed, "stops.txt", "stop_id,stop_name\nS1,One\nS2,Two\nS3,Three\nS4,Unused\n")
	writeFeedFile(t, feed, "routes.txt", "route_id,agency_id,route_short_name,route_type\nR1,M,1,3\n")
	writeFeedFile(t, feed, "trips.txt", "route_id,service_id,trip_id\nR1,WK,T1\nR1,WK,T2\n")
	writeFeedFile(t, feed, "stop_times.txt", ""+
		"trip_id,arrival_time,departure_time,stop_id,stop_sequence\n"+
		"T1,08:00:00,08:00:00,S1,1\n"+
		"T1,08:05:00,08:05:00,S2,2\n"+
		"T1,08:10:00,08:10:00,S3,10\n"+
		"T2,09:00:00,09:00:00,S3,1\n"+
		"T2,09:05:00,09:05:00,S1,2\n")
	writeFeedFile(t, feed, "calendar.txt.gz", string(compress(t, model.CompressionGZ, []byte(
		"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n"+
			"WK,1,1,1,1,1,0,0,20240101,20241231\n"))))

	dbPath := filepath.Join(t.TempDir(), "gtfs.db")
	metrics, err := NewMetrics()
	require.NoError(t, err)

	builder, err := NewBuilder().
		SetFeed(feed).
		SetDatabase(dbPath).
		SetBatchSize(2).
		SetMetrics(metrics).
		Build(context.Background())
	require.NoError(t, err)
	report, err := builder.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Optimize)
	assert.Equal(t, 2, report.Optimize.TripsProcessed)
	assert.Equal(t, int64(1), report.Optimize.StopsPruned)
	assert.Positive(t, report.Duration)

	db := openImported(t, dbPath)
	ctx := context.Background()

	rows, err := db.QueryContext(ctx, `SELECT trip_id, stop_sequence FROM stop_times WHERE last_stop = 1 ORDER BY trip_id`)
	require.NoError(t, err)
	var last []string
	for rows.Next() {
		var trip, seq string
		require.NoError(t, rows.Scan(&trip, &seq))
		last = append(last, trip+":"+seq)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"T1:10", "T2:2"}, last)

	assert.Equal(t, 3, countRows(t, db, model.TableStops), "S4 is pruned")
	assert.Equal(t, 1, countRows(t, db, model.TableCalendar))

	for _, spec := range model.Indexes() {
		var n int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, spec.Name()).Scan(&n))
		assert.Equal(t, 1, n, spec.Name())
	}

	var files int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _gtfs_file_info`).Scan(&files))
	assert.Equal(t, 6, files)

	assert.InDelta(t, 5, counterValue(t, metrics, "gtfssql_rows_loaded_total", model.TableStopTimes), 0)
	assert.InDelta(t, 3, counterValue(t, metrics, "gtfssql_batches_total", model.TableStopTimes), 0)
	assert.InDelta(t, float64(len(model.Tables())-6), counterValue(t, metrics, "gtfssql_files_missing_total", ""), 0)
}

func TestImport_ExistingDatabase(t *testing.T) {
	t.Parallel()

	feed := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "gtfs.db")

	_, err := Import(feed, dbPath)
	require.NoError(t, err)

	_, err = Import(feed, dbPath)
	assert.ErrorIs(t, err, ErrDatabaseExists)
}

func TestImportContext_MissingFeed(t *testing.T) {
	t.Parallel()

	_, err := ImportContext(context.Background(), filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "gtfs.db"))
	assert.ErrorIs(t, err, ErrFeedNotFound)
}

func TestOptimizeDatabase(t *testing.T) {
	t.Parallel()

	feed := t.TempDir()
	writeFeedFile(t, feed, "trips.txt", "trip_id\nT1\n")
	writeFeedFile(t, feed, "stop_times.txt", "trip_id,stop_id,stop_sequence\nT1,S1,1\nT1,S2,2\n")
	writeFeedFile(t, feed, "stops.txt", "stop_id\nS1\nS2\nS3\n")
	dbPath := filepath.Join(t.TempDir(), "gtfs.db")

	builder, err := NewBuilder().SetFeed(feed).SetDatabase(dbPath).SkipOptimize(true).Build(context.Background())
	require.NoError(t, err)
	_, err = builder.Run(context.Background())
	require.NoError(t, err)

	report, err := OptimizeDatabase(context.Background(), dbPath, WithOptimizeBatchSize(1))
	require.NoError(t, err)
	assert.Equal(t, OptimizeReport{TripsProcessed: 1, StopsPruned: 1}, report)

	_, err = OptimizeDatabase(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
