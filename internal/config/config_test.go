package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/transitfeeds/gtfssql"
	"github.com/transitfeeds/gtfssql/domain/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gtfs2sql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, gtfssql.DefaultBatchSize, c.BatchSize)
	assert.True(t, c.OptimizeEnabled())
	assert.Equal(t, gtfssql.DefaultMetricsJob, c.Metrics.Job)

	r, err := c.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, ',', r)

	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
feed: feeds/metro
database: metro.db
batch_size: 250
delimiter: tab
column_match: exact
report_missing_columns: true
optimize: false
log_level: debug
metrics:
  push_url: http://pushgateway:9091
`)

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "feeds/metro", c.Feed)
	assert.Equal(t, "metro.db", c.Database)
	assert.Equal(t, 250, c.BatchSize)
	assert.True(t, c.ReportMissingColumns)
	assert.False(t, c.OptimizeEnabled())
	assert.Equal(t, "http://pushgateway:9091", c.Metrics.PushURL)
	assert.Equal(t, gtfssql.DefaultMetricsJob, c.Metrics.Job)

	r, err := c.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, '\t', r)

	header := model.Header{"parent_station", "station"}
	assert.Equal(t, 1, c.Matcher()(header, "station"))
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	c, err := Load(writeConfig(t, "feed: feeds/metro\n"))
	require.NoError(t, err)
	assert.Equal(t, gtfssql.DefaultBatchSize, c.BatchSize)
	assert.Equal(t, ",", c.Delimiter)
	assert.True(t, c.OptimizeEnabled())
	assert.Equal(t, 0, c.Matcher()(model.Header{"parent_station", "station"}, "station"))
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "batch_size: [1, 2"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }},
		{name: "long delimiter", modify: func(c *Config) { c.Delimiter = ";;" }},
		{name: "unknown match", modify: func(c *Config) { c.ColumnMatch = "fuzzy" }},
		{name: "unknown level", modify: func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Default()
			tt.modify(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_DelimiterRune(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want rune
	}{
		{in: "", want: ','},
		{in: ";", want: ';'},
		{in: "|", want: '|'},
		{in: `\t`, want: '\t'},
		{in: "TAB", want: '\t'},
		{in: "§", want: '§'},
	}
	for _, tt := range tests {
		c := &Config{Delimiter: tt.in}
		got, err := c.DelimiterRune()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
