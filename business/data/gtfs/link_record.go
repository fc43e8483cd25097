package gtfs

import (
	"github.com/jmoiron/sqlx"
	"time"
)

// LinkValidity explains whether a LinkRecord's speed is usable, and if not, why.
// Invalid records are retained in the output table so coverage remains observable
type LinkValidity string

const (
	//LinkValid indicates duration and speed passed all validity rules
	LinkValid LinkValidity = "valid"
	//LinkNoData indicates a crossing time was missing for one or both stops, no duration or speed was computed
	LinkNoData LinkValidity = "no_data"
	//LinkNonPositiveDuration indicates the crossing times produced a duration of zero or less
	LinkNonPositiveDuration LinkValidity = "non_positive_duration"
	//LinkImplausibleSpeed indicates the computed speed fell outside the configured plausible range
	LinkImplausibleSpeed LinkValidity = "implausible_speed"
	//LinkGeometryMismatch indicates the stop pair's projected distances disagreed with the trip's stop order
	LinkGeometryMismatch LinkValidity = "geometry_mismatch"
)

// DistanceSource identifies how a link's distance was measured
type DistanceSource string

const (
	//DistanceFromShape is distance measured along the trip's shape geometry
	DistanceFromShape DistanceSource = "shape"
	//DistanceDirect is the straight line distance between the two stops, used when the
	//shape measurement degenerates
	DistanceDirect DistanceSource = "direct"
)

// LinkRecord is one trip-instance's traversal of the link between two consecutive
// scheduled stops.
// primary key consists of ServiceDate, TripId, FromStopId, ToStopId
type LinkRecord struct {
	DataSetId   int64     `db:"data_set_id" json:"data_set_id"`
	ServiceDate time.Time `db:"service_date" json:"service_date"`
	TripId      string    `db:"trip_id" json:"trip_id"`
	RouteId     string    `db:"route_id" json:"route_id"`
	DirectionId int       `db:"direction_id" json:"direction_id"`
	VehicleId   string    `db:"vehicle_id" json:"vehicle_id"`
	//LinkId identifies the stop pair independent of trip, the concatenation of the stop ids
	LinkId     string `db:"link_id" json:"link_id"`
	FromStopId string `db:"from_stop_id" json:"from_stop_id"`
	ToStopId   string `db:"to_stop_id" json:"to_stop_id"`
	//StartTime and EndTime are estimated stop crossing times. Zero valued when Validity is LinkNoData
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	//DurationSeconds is EndTime - StartTime
	DurationSeconds float64 `db:"duration_seconds" json:"duration_seconds"`
	//DistanceMeters is the along-route distance between the stops
	DistanceMeters float64        `db:"distance_meters" json:"distance_meters"`
	DistanceSource DistanceSource `db:"distance_source" json:"distance_source"`
	//SpeedMetersPerSecond is DistanceMeters / DurationSeconds, zero when not computed
	SpeedMetersPerSecond float64      `db:"speed_meters_per_second" json:"speed_meters_per_second"`
	Validity             LinkValidity `db:"validity" json:"validity"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
}

// IsValid returns true when the record's speed passed all validity rules
func (l *LinkRecord) IsValid() bool {
	return l.Validity == LinkValid
}

// RecordLinkRecords saves linkRecords to database in batch
func RecordLinkRecords(linkRecords []*LinkRecord, db *sqlx.DB) error {
	if len(linkRecords) == 0 {
		return nil
	}
	now := time.Now()
	for _, linkRecord := range linkRecords {
		linkRecord.CreatedAt = now
	}

	statementString := "insert into link_record ( " +
		"data_set_id, " +
		"service_date, " +
		"trip_id, " +
		"route_id, " +
		"direction_id, " +
		"vehicle_id, " +
		"link_id, " +
		"from_stop_id, " +
		"to_stop_id, " +
		"start_time, " +
		"end_time, " +
		"duration_seconds, " +
		"distance_meters, " +
		"distance_source, " +
		"speed_meters_per_second, " +
		"validity, " +
		"created_at) " +
		"values (" +
		":data_set_id, " +
		":service_date, " +
		":trip_id, " +
		":route_id, " +
		":direction_id, " +
		":vehicle_id, " +
		":link_id, " +
		":from_stop_id, " +
		":to_stop_id, " +
		":start_time, " +
		":end_time, " +
		":duration_seconds, " +
		":distance_meters, " +
		":distance_source, " +
		":speed_meters_per_second, " +
		":validity, " +
		":created_at)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, linkRecords)
	return err
}
