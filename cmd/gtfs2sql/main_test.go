package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stops.txt"), []byte("stop_id;stop_name\nS1;Main St\nS2;2nd Ave\n"), 0600))
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_Success(t *testing.T) {
	t.Parallel()

	feed := writeFeed(t)
	db := filepath.Join(t.TempDir(), "gtfs.db")

	code, stdout, stderr := run(t, "-g", feed, "-s", db, "--delimiter", ";", "--log-level", "warn")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "stops")
	assert.Contains(t, stdout, "optimized:")
	assert.FileExists(t, db)
}

func TestExecute_MissingArguments(t *testing.T) {
	t.Parallel()

	feed := writeFeed(t)

	code, _, stderr := run(t, "-s", filepath.Join(t.TempDir(), "gtfs.db"))
	assert.Equal(t, exitMissingFeed, code)
	assert.Contains(t, stderr, "-g")

	code, _, stderr = run(t, "-g", feed)
	assert.Equal(t, exitMissingSQLite, code)
	assert.Contains(t, stderr, "-s")

	code, _, _ = run(t, "--unknown")
	assert.Equal(t, exitMissingFeed, code)
}

func TestExecute_SetupErrors(t *testing.T) {
	t.Parallel()

	feed := writeFeed(t)
	existing := filepath.Join(t.TempDir(), "exists.db")
	require.NoError(t, os.WriteFile(existing, nil, 0600))

	tests := []struct {
		name string
		args []string
	}{
		{name: "database exists", args: []string{"-g", feed, "-s", existing}},
		{name: "feed missing", args: []string{"-g", filepath.Join(feed, "nope"), "-s", filepath.Join(t.TempDir(), "a.db")}},
		{name: "bad batch size", args: []string{"-g", feed, "-s", filepath.Join(t.TempDir(), "b.db"), "--batch-size", "0"}},
		{name: "bad log level", args: []string{"-g", feed, "-s", filepath.Join(t.TempDir(), "c.db"), "--log-level", "loud"}},
		{name: "missing config", args: []string{"--config", filepath.Join(t.TempDir(), "none.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, _, _ := run(t, tt.args...)
			assert.Equal(t, exitSetup, code)
		})
	}
}

func TestExecute_ConfigFile(t *testing.T) {
	t.Parallel()

	feed := writeFeed(t)
	db := filepath.Join(t.TempDir(), "gtfs.db")
	cfg := filepath.Join(t.TempDir(), "gtfs2sql.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"feed: "+feed+"\n"+
			"database: "+db+"\n"+
			"delimiter: \";\"\n"+
			"optimize: false\n"+
			"log_level: error\n"), 0600))

	code, stdout, stderr := run(t, "--config", cfg)
	require.Equal(t, exitOK, code, stderr)
	assert.NotContains(t, stdout, "optimized:")
	assert.FileExists(t, db)

	// flags win over the file
	other := filepath.Join(t.TempDir(), "other.db")
	code, stdout, stderr = run(t, "--config", cfg, "-s", other, "--no-optimize=false")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "optimized:")
	assert.FileExists(t, other)
}
