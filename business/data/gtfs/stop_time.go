package gtfs

import (
	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/jmoiron/sqlx"
	"time"
)

// StopTime contains a record from a gtfs stop_times.txt file joined with the stop's
// location from stops.txt.
// represents a scheduled arrival and departure at a stop.
type StopTime struct {
	DataSetId         int64   `db:"data_set_id" json:"data_set_id"`
	TripId            string  `db:"trip_id" json:"trip_id"`
	StopSequence      uint32  `db:"stop_sequence" json:"stop_sequence"`
	StopId            string  `db:"stop_id" json:"stop_id"`
	StopLat           float64 `db:"stop_lat" json:"stop_lat"`
	StopLon           float64 `db:"stop_lon" json:"stop_lon"`
	ArrivalTime       int     `db:"arrival_time" json:"arrival_time"`
	DepartureTime     int     `db:"departure_time" json:"departure_time"`
	ShapeDistTraveled float64 `db:"shape_dist_traveled" json:"shape_dist_traveled"`
	Timepoint         int     `db:"timepoint" json:"timepoint"`
}

type StopTimeInstance struct {
	StopTime
	FirstStop         bool `json:"first_stop"`
	ArrivalDateTime   time.Time
	DepartureDateTime time.Time
}

func (sti *StopTimeInstance) IsTimepoint() bool {
	return sti != nil && sti.Timepoint == 1
}

// RecordStopTimes saves stopTimes to database in batch
func RecordStopTimes(stopTimes []*StopTime, dsTx *DataSetTransaction) error {
	for _, stopTime := range stopTimes {
		stopTime.DataSetId = dsTx.DS.Id
	}

	statementString := "insert into stop_time ( " +
		"data_set_id, " +
		"trip_id, " +
		"stop_sequence, " +
		"stop_id, " +
		"stop_lat, " +
		"stop_lon, " +
		"arrival_time, " +
		"departure_time, " +
		"shape_dist_traveled," +
		"timepoint) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":stop_sequence, " +
		":stop_id, " +
		":stop_lat, " +
		":stop_lon, " +
		":arrival_time, " +
		":departure_time," +
		":shape_dist_traveled," +
		":timepoint)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, stopTimes)
	return err
}

// GetStopTimeInstances collects StopTimeInstances for tripIds, ordered by stop sequence inside a map
// keyed by tripId. ArrivalDateTime and DepartureDateTime are populated from serviceDate.
// returns the map and a slice of tripIds where no StopTimeInstances could be found
func GetStopTimeInstances(db *sqlx.DB,
	serviceDate time.Time,
	dataSetId int64,
	tripIds []string) (map[string][]*StopTimeInstance, []string, error) {

	results := make(map[string][]*StopTimeInstance)
	missingTripIds := make([]string, 0)

	statementString := "select * from stop_time where data_set_id = :data_set_id and trip_id in (:trip_ids) " +
		"order by trip_id, stop_sequence"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"trip_ids":    tripIds,
	})
	if err != nil {
		return nil, missingTripIds, err
	}
	defer func() {
		_ = rows.Close()
	}()

	currentTripId := ""
	for rows.Next() {
		sti := StopTimeInstance{}
		err = rows.StructScan(&sti)
		if err != nil {
			return nil, missingTripIds, err
		}
		sti.FirstStop = currentTripId != sti.TripId
		currentTripId = sti.TripId
		sti.ArrivalDateTime = MakeScheduleTime(serviceDate, sti.ArrivalTime)
		sti.DepartureDateTime = MakeScheduleTime(serviceDate, sti.DepartureTime)
		results[sti.TripId] = append(results[sti.TripId], &sti)
	}
	err = rows.Err()
	if err != nil {
		return nil, missingTripIds, err
	}

	for _, tripId := range tripIds {
		if _, present := results[tripId]; !present {
			missingTripIds = append(missingTripIds, tripId)
		}
	}
	return results, missingTripIds, nil
}
