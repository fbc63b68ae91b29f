package gtfssql

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus is the outcome of one table load
type FileStatus string

const (
	// FileLoaded means the rows were committed
	FileLoaded FileStatus = "loaded"
	// FileMissing means no source file was found and the table stays empty
	FileMissing FileStatus = "missing"
	// FileEmpty means the source file had no header record
	FileEmpty FileStatus = "empty"
	// FileAborted means the load was rolled back after an I/O or statement error
	FileAborted FileStatus = "aborted"
)

// TableReport summarizes the load of one table.
type TableReport struct {
	Table    string
	File     string
	Status   FileStatus
	Charset  string
	Rows     int
	Batches  int
	Skipped  int
	Duration time.Duration
	// Err is the cause of an aborted load
	Err error
}

// Report summarizes an import run.
type Report struct {
	RunID    uuid.UUID
	Tables   []TableReport
	Issues   IssueCounts
	// Optimize is nil when post-processing was skipped or never reached
	Optimize *OptimizeReport
	Duration time.Duration
}

// IssueCounts counts recorded issues per kind.
type IssueCounts struct {
	Errors   int
	Warnings int
}

// Total returns the number of recorded issues
func (c IssueCounts) Total() int {
	return c.Errors + c.Warnings
}

// Table returns the report of the named table.
func (r *Report) Table(name string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

// RowsLoaded returns the total number of inserted rows.
func (r *Report) RowsLoaded() int {
	total := 0
	for _, t := range r.Tables {
		total += t.Rows
	}
	return total
}
