// Package gtfssql imports a GTFS transit feed, a directory of delimited
// <table>.txt files, into a new SQLite database.
//
// The import is tolerant of real-world feeds. Missing files, headers in any
// order, unknown or absent columns, legacy character encodings and malformed
// records do not stop it. Every such problem is written to the _gtfs_issues
// table and the import moves on to the next file.
//
// # Pipeline
//
// An import runs strictly sequentially:
//
//   - The thirteen feed tables are created, every loaded column as TEXT,
//     along with the auxiliary tables _gtfs_issues and _gtfs_file_info.
//   - Each table is loaded from its file. The charset is sniffed from the
//     first 4096 bytes (ISO-8859-1 when undetermined), each schema column is
//     matched to a header position, and the rows are inserted in batches
//     inside one transaction per file.
//   - The secondary indexes are created.
//   - The store is post-processed. stop_times.last_stop marks the final stop
//     of every trip, stops without stop times are deleted, and the file is
//     vacuumed and analyzed.
//
// # Basic Usage
//
//	report, err := gtfssql.Import("feeds/metro", "metro.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Advanced Usage
//
//	builder, err := gtfssql.NewBuilder().
//	    SetFeed("feeds/metro").
//	    SetDatabase("metro.db").
//	    SetBatchSize(5000).
//	    SetColumnMatcher(gtfssql.ExactMatcher).
//	    ReportMissingColumns(true).
//	    SetLogger(logger).
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := builder.Run(ctx)
//
// # Compressed Feeds
//
// A table file may also be stored compressed as <table>.txt.gz, .bz2, .xz or
// .zst. The plain file wins when both exist.
//
// # Errors
//
// Only setup problems are returned before anything is written:
// ErrFeedNotFound, ErrFeedNotDirectory, ErrDatabaseExists,
// ErrInvalidBatchSize and ErrInvalidDelimiter. Once loading has started, Run
// returns an error only for index creation or post-processing failures.
package gtfssql
