package feed

import (
	"time"

	"github.com/JonMunkholm/transitconv/internal/table"
)

// Feed entity schemas. Column order is the order written to disk.
var (
	Agency = table.MustSchema("agency",
		table.ColumnSpec{Name: "agency_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "agency_name", Type: table.TypeText, Quoted: true},
		table.ColumnSpec{Name: "agency_url", Type: table.TypeText},
		table.ColumnSpec{Name: "agency_timezone", Type: table.TypeText},
		table.ColumnSpec{Name: "agency_lang", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "agency_phone", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "agency_fare_url", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "agency_email", Type: table.TypeText, Nullable: true},
	)

	Calendar = table.MustSchema("calendar",
		table.ColumnSpec{Name: "service_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "monday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "tuesday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "wednesday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "thursday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "friday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "saturday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "sunday", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "start_date", Type: table.TypeDate},
		table.ColumnSpec{Name: "end_date", Type: table.TypeDate},
	)

	CalendarDates = table.MustSchema("calendar_dates",
		table.ColumnSpec{Name: "service_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "date", Type: table.TypeDate, Key: true},
		table.ColumnSpec{Name: "exception_type", Type: table.TypeInteger, Default: "1"},
	)

	Stops = table.MustSchema("stops",
		table.ColumnSpec{Name: "stop_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "stop_code", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "stop_name", Type: table.TypeText, Quoted: true},
		table.ColumnSpec{Name: "stop_desc", Type: table.TypeText, Quoted: true, Nullable: true},
		table.ColumnSpec{Name: "stop_lat", Type: table.TypeReal},
		table.ColumnSpec{Name: "stop_lon", Type: table.TypeReal},
		table.ColumnSpec{Name: "zone_id", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "stop_url", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "location_type", Type: table.TypeInteger, Default: "0", Nullable: true},
		table.ColumnSpec{Name: "parent_station", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "stop_timezone", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "wheelchair_boarding", Type: table.TypeInteger, Default: "0", Nullable: true},
		table.ColumnSpec{Name: "platform_code", Type: table.TypeText, Nullable: true},
	)

	Routes = table.MustSchema("routes",
		table.ColumnSpec{Name: "route_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "agency_id", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "route_short_name", Type: table.TypeText, Quoted: true},
		table.ColumnSpec{Name: "route_long_name", Type: table.TypeText, Quoted: true},
		table.ColumnSpec{Name: "route_desc", Type: table.TypeText, Quoted: true, Nullable: true},
		table.ColumnSpec{Name: "route_type", Type: table.TypeInteger, Default: "3"},
		table.ColumnSpec{Name: "route_url", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "route_color", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "route_text_color", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "route_sort_order", Type: table.TypeInteger, Nullable: true},
	)

	Trips = table.MustSchema("trips",
		table.ColumnSpec{Name: "route_id", Type: table.TypeText},
		table.ColumnSpec{Name: "service_id", Type: table.TypeText},
		table.ColumnSpec{Name: "trip_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "trip_headsign", Type: table.TypeText, Quoted: true, Nullable: true},
		table.ColumnSpec{Name: "trip_short_name", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "direction_id", Type: table.TypeInteger, Nullable: true},
		table.ColumnSpec{Name: "block_id", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "shape_id", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "wheelchair_accessible", Type: table.TypeInteger, Default: "0", Nullable: true},
		table.ColumnSpec{Name: "bikes_allowed", Type: table.TypeInteger, Default: "0", Nullable: true},
	)

	StopTimes = table.MustSchema("stop_times",
		table.ColumnSpec{Name: "trip_id", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "arrival_time", Type: table.TypeTimeOfDay},
		table.ColumnSpec{Name: "departure_time", Type: table.TypeTimeOfDay},
		table.ColumnSpec{Name: "stop_id", Type: table.TypeText},
		table.ColumnSpec{Name: "stop_sequence", Type: table.TypeInteger, Key: true},
		table.ColumnSpec{Name: "stop_headsign", Type: table.TypeText, Quoted: true, Nullable: true},
		table.ColumnSpec{Name: "pickup_type", Type: table.TypeInteger, Default: "0", Nullable: true},
		table.ColumnSpec{Name: "drop_off_type", Type: table.TypeInteger, Default: "0", Nullable: true},
		table.ColumnSpec{Name: "shape_dist_traveled", Type: table.TypeReal, Nullable: true},
		table.ColumnSpec{Name: "timepoint", Type: table.TypeInteger, Default: "1", Nullable: true},
	)

	FeedInfo = table.MustSchema("feed_info",
		table.ColumnSpec{Name: "feed_publisher_name", Type: table.TypeText, Key: true, Quoted: true},
		table.ColumnSpec{Name: "feed_publisher_url", Type: table.TypeText},
		table.ColumnSpec{Name: "feed_lang", Type: table.TypeText},
		table.ColumnSpec{Name: "feed_start_date", Type: table.TypeDate, Nullable: true},
		table.ColumnSpec{Name: "feed_end_date", Type: table.TypeDate, Nullable: true},
		table.ColumnSpec{Name: "feed_version", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "feed_contact_email", Type: table.TypeText, Nullable: true},
	)
)

// Catalog lists every feed entity in write order.
var Catalog = table.NewCatalog("feed",
	Agency, Calendar, CalendarDates, Stops, Routes, Trips, StopTimes, FeedInfo,
)

// Typed column handles used by converters and tests.
var (
	AgencyID       = table.MustCol[string](Agency, "agency_id")
	AgencyName     = table.MustCol[string](Agency, "agency_name")
	AgencyURL      = table.MustCol[string](Agency, "agency_url")
	AgencyTimezone = table.MustCol[string](Agency, "agency_timezone")

	CalendarServiceID = table.MustCol[string](Calendar, "service_id")
	CalendarMonday    = table.MustCol[int64](Calendar, "monday")
	CalendarSunday    = table.MustCol[int64](Calendar, "sunday")
	CalendarStart     = table.MustCol[time.Time](Calendar, "start_date")
	CalendarEnd       = table.MustCol[time.Time](Calendar, "end_date")

	StopID   = table.MustCol[string](Stops, "stop_id")
	StopCode = table.MustCol[string](Stops, "stop_code")
	StopName = table.MustCol[string](Stops, "stop_name")
	StopLat  = table.MustCol[float64](Stops, "stop_lat")
	StopLon  = table.MustCol[float64](Stops, "stop_lon")

	RouteID        = table.MustCol[string](Routes, "route_id")
	RouteAgencyID  = table.MustCol[string](Routes, "agency_id")
	RouteShortName = table.MustCol[string](Routes, "route_short_name")
	RouteLongName  = table.MustCol[string](Routes, "route_long_name")
	RouteType      = table.MustCol[int64](Routes, "route_type")

	TripID        = table.MustCol[string](Trips, "trip_id")
	TripRouteID   = table.MustCol[string](Trips, "route_id")
	TripServiceID = table.MustCol[string](Trips, "service_id")
	TripHeadsign  = table.MustCol[string](Trips, "trip_headsign")
	TripDirection = table.MustCol[int64](Trips, "direction_id")

	StopTimeTripID    = table.MustCol[string](StopTimes, "trip_id")
	StopTimeArrival   = table.MustCol[time.Duration](StopTimes, "arrival_time")
	StopTimeDeparture = table.MustCol[time.Duration](StopTimes, "departure_time")
	StopTimeStopID    = table.MustCol[string](StopTimes, "stop_id")
	StopTimeSequence  = table.MustCol[int64](StopTimes, "stop_sequence")
)

// FileName returns the archive member name for an entity.
func FileName(entity string) string { return entity + ".txt" }
