package gtfssql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/transitfeeds/gtfssql/domain/model"
)

func TestIssueLog_Record(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newSchemaDB(t)
	metrics, err := NewMetrics()
	require.NoError(t, err)

	log, err := NewIssueLog(ctx, db, nil, metrics)
	require.NoError(t, err)
	defer log.Close()

	log.RecordAll(ctx, []model.Issue{
		model.NewFileNotFoundIssue("agency.txt"),
		model.NewColumnNotFoundIssue("stops.txt", "zone_id"),
		model.NewRowIssue("trips.txt", model.IssueWarning, 12, "Unreadable record: bare quote"),
	})

	assert.Equal(t, IssueCounts{Errors: 1, Warnings: 2}, log.Counts())
	assert.Equal(t, 3, log.Counts().Total())

	issues := readIssues(t, db)
	require.Len(t, issues, 3)

	assert.Equal(t, "agency.txt", issues[0].Filename)
	assert.Equal(t, model.IssueError, issues[0].Kind)
	assert.Nil(t, issues[0].Column)
	assert.Nil(t, issues[0].Line)

	require.NotNil(t, issues[1].Column)
	assert.Equal(t, "zone_id", *issues[1].Column)
	assert.Nil(t, issues[1].Line)

	require.NotNil(t, issues[2].Line)
	assert.Equal(t, 12, *issues[2].Line)
	assert.Equal(t, "Unreadable record: bare quote", issues[2].Message)

	var stored string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT type FROM _gtfs_issues WHERE filename = 'agency.txt'`).Scan(&stored))
	assert.Equal(t, "ERROR", stored)
}

func TestIssueLog_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newSchemaDB(t)
	core, logs := observer.New(zap.DebugLevel)

	log, err := NewIssueLog(ctx, db, zap.New(core), nil)
	require.NoError(t, err)
	defer log.Close()

	exec(t, db, `DROP TABLE _gtfs_issues`)

	assert.NotPanics(t, func() {
		log.Record(ctx, model.NewFileNotFoundIssue("agency.txt"))
	})
	assert.Equal(t, 1, log.Counts().Errors)
	assert.Equal(t, 1, logs.FilterMessage("issue not recorded").Len())
}

func TestNewIssueLog_RequiresTable(t *testing.T) {
	t.Parallel()

	db := newSchemaDB(t)
	exec(t, db, `DROP TABLE _gtfs_issues`)

	_, err := NewIssueLog(context.Background(), db, nil, nil)
	assert.Error(t, err)
}
