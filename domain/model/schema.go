// Package model provides the domain model for gtfssql: the fixed GTFS schema,
// import issues, and source file descriptions.
package model

import "slices"

// TableSpec declares one destination table. Every column in Columns is text-typed
// and bound by the loader. DerivedColumns are created with the table but filled
// later by post-processing, never by the loader.
type TableSpec struct {
	// Name is the table name and the base name of its source file.
	Name string
	// Columns is the ordered list of loaded columns.
	Columns []string
	// DerivedColumns are extra columns with their full SQL definition.
	DerivedColumns []DerivedColumn
}

// DerivedColumn is a column computed after the bulk load.
type DerivedColumn struct {
	Name       string
	Definition string
}

// IndexSpec declares a single-column secondary index.
type IndexSpec struct {
	Table  string
	Column string
}

// FileName returns the base file name of the table source file.
func (t TableSpec) FileName() string {
	return t.Name + ExtTXT
}

// HasColumn reports whether column is one of the loaded columns.
func (t TableSpec) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Name returns the deterministic index name, <table>_<column>.
func (i IndexSpec) Name() string {
	return i.Table + "_" + i.Column
}

// Table names of the GTFS feed.
const (
	TableAgency         = "agency"
	TableStops          = "stops"
	TableRoutes         = "routes"
	TableTrips          = "trips"
	TableStopTimes      = "stop_times"
	TableCalendar       = "calendar"
	TableCalendarDates  = "calendar_dates"
	TableFareAttributes = "fare_attributes"
	TableFareRules      = "fare_rules"
	TableShapes         = "shapes"
	TableFrequencies    = "frequencies"
	TableTransfers      = "transfers"
	TableFeedInfo       = "feed_info"
)

// Auxiliary table names.
const (
	// IssuesTable holds the issue log.
	IssuesTable = "_gtfs_issues"
	// FileInfoTable holds per-file ingestion metadata.
	FileInfoTable = "_gtfs_file_info"
)

// LastStopColumn is the derived stop_times flag marking the final stop of a trip.
const LastStopColumn = "last_stop"

var tables = []TableSpec{
	{
		Name:    TableAgency,
		Columns: []string{"agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone", "agency_fare_url"},
	},
	{
		Name: TableStops,
		Columns: []string{
			"stop_id", "stop_code", "stop_name", "stop_desc", "stop_lat", "stop_lon", "zone_id",
			"stop_url", "location_type", "parent_station", "stop_timezone", "wheelchair_boarding",
		},
	},
	{
		Name: TableRoutes,
		Columns: []string{
			"route_id", "agency_id", "route_short_name", "route_long_name", "route_desc",
			"route_type", "route_url", "route_color", "route_text_color",
		},
	},
	{
		Name: TableTrips,
		Columns: []string{
			"route_id", "service_id", "trip_id", "trip_headsign", "trip_short_name",
			"direction_id", "block_id", "shape_id", "wheelchair_accessible",
		},
	},
	{
		Name: TableStopTimes,
		Columns: []string{
			"trip_id", "arrival_time", "departure_time", "stop_id", "stop_sequence",
			"stop_headsign", "pickup_type", "drop_off_type", "shape_dist_traveled",
		},
		DerivedColumns: []DerivedColumn{
			{Name: LastStopColumn, Definition: "INTEGER NOT NULL DEFAULT 0"},
		},
	},
	{
		Name:    TableCalendar,
		Columns: []string{"service_id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "start_date", "end_date"},
	},
	{
		Name:    TableCalendarDates,
		Columns: []string{"service_id", "date", "exception_type"},
	},
	{
		Name:    TableFareAttributes,
		Columns: []string{"fare_id", "price", "currency_type", "payment_method", "transfers", "transfer_duration"},
	},
	{
		Name:    TableFareRules,
		Columns: []string{"fare_id", "route_id", "origin_id", "destination_id", "contains_id"},
	},
	{
		Name:    TableShapes,
		Columns: []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence", "shape_dist_traveled"},
	},
	{
		Name:    TableFrequencies,
		Columns: []string{"trip_id", "start_time", "end_time", "headway_secs", "exact_times"},
	},
	{
		Name:    TableTransfers,
		Columns: []string{"from_stop_id", "to_stop_id", "transfer_type", "min_transfer_time"},
	},
	{
		Name:    TableFeedInfo,
		Columns: []string{"feed_publisher_name", "feed_publisher_url", "feed_lang", "feed_start_date", "feed_end_date", "feed_version"},
	},
}

var indexes = []IndexSpec{
	{Table: TableAgency, Column: "agency_id"},
	{Table: TableStops, Column: "stop_id"},
	{Table: TableRoutes, Column: "route_id"},
	{Table: TableRoutes, Column: "agency_id"},
	{Table: TableTrips, Column: "route_id"},
	{Table: TableTrips, Column: "service_id"},
	{Table: TableTrips, Column: "trip_id"},
	{Table: TableTrips, Column: "shape_id"},
	{Table: TableStopTimes, Column: "trip_id"},
	{Table: TableStopTimes, Column: "stop_id"},
	{Table: TableCalendar, Column: "service_id"},
	{Table: TableCalendarDates, Column: "service_id"},
	{Table: TableFareAttributes, Column: "fare_id"},
	{Table: TableFareRules, Column: "fare_id"},
	{Table: TableShapes, Column: "shape_id"},
	{Table: TableFrequencies, Column: "trip_id"},
	{Table: TableTransfers, Column: "from_stop_id"},
	{Table: TableTransfers, Column: "to_stop_id"},
}

// Tables returns the GTFS table specs in creation order.
// The returned slice is a copy; callers may modify it freely.
func Tables() []TableSpec {
	out := make([]TableSpec, len(tables))
	for i, t := range tables {
		out[i] = TableSpec{
			Name:           t.Name,
			Columns:        slices.Clone(t.Columns),
			DerivedColumns: slices.Clone(t.DerivedColumns),
		}
	}
	return out
}

// Indexes returns the secondary index specs in creation order.
func Indexes() []IndexSpec {
	return slices.Clone(indexes)
}

// LookupTable returns the spec for the named table.
func LookupTable(name string) (TableSpec, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return TableSpec{}, false
}
