package gtfs

import (
	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/jmoiron/sqlx"
	"time"
)

// VehiclePosition contains a single position report for a vehicle performing a trip.
// Raw reports arrive unsorted and may contain duplicate or regressing timestamps,
// cleanup is left to processing
type VehiclePosition struct {
	DataSetId int64  `db:"data_set_id" json:"data_set_id"`
	TripId    string `db:"trip_id" json:"trip_id"`
	VehicleId string `db:"vehicle_id" json:"vehicle_id"`
	//Timestamp is unix epoch seconds the position was reported at
	Timestamp int64   `db:"timestamp" json:"timestamp"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	//Speed and Bearing are included when the feed reported them
	Speed   *float32 `db:"speed" json:"speed"`
	Bearing *float32 `db:"bearing" json:"bearing"`
}

// RecordVehiclePositions saves positions to database in batch
func RecordVehiclePositions(positions []*VehiclePosition, db *sqlx.DB) error {
	if len(positions) == 0 {
		return nil
	}
	statementString := "insert into vehicle_position ( " +
		"data_set_id, " +
		"trip_id, " +
		"vehicle_id, " +
		"timestamp, " +
		"latitude, " +
		"longitude, " +
		"speed, " +
		"bearing) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":vehicle_id, " +
		":timestamp, " +
		":latitude, " +
		":longitude, " +
		":speed, " +
		":bearing)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, positions)
	return err
}

// GetVehiclePositions loads raw positions reported between from and to for tripIds,
// returned in a map keyed by tripId. No ordering or de-duplication is performed
func GetVehiclePositions(db *sqlx.DB,
	dataSetId int64,
	from time.Time,
	to time.Time,
	tripIds []string) (map[string][]*VehiclePosition, error) {

	results := make(map[string][]*VehiclePosition)

	statementString := "select * from vehicle_position where data_set_id = :data_set_id " +
		"and trip_id in (:trip_ids) " +
		"and timestamp between :from and :to"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"trip_ids":    tripIds,
		"from":        from.Unix(),
		"to":          to.Unix(),
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		position := VehiclePosition{}
		err = rows.StructScan(&position)
		if err != nil {
			return nil, err
		}
		results[position.TripId] = append(results[position.TripId], &position)
	}
	return results, rows.Err()
}
