package gtfs

import (
	"fmt"
	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/jmoiron/sqlx"
	"strings"
	"time"
)

// Trip contains data from a gtfs trip definition in a trips.txt file
type Trip struct {
	DataSetId     int64   `db:"data_set_id" json:"data_set_id"`
	TripId        string  `db:"trip_id" json:"trip_id"`
	RouteId       string  `db:"route_id" json:"route_id"`
	ServiceId     string  `db:"service_id" json:"service_id"`
	TripHeadsign  *string `db:"trip_headsign" json:"trip_headsign"`
	TripShortName *string `db:"trip_short_name" json:"trip_short_name"`
	DirectionId   int     `db:"direction_id" json:"direction_id"`
	BlockId       string  `db:"block_id" json:"block_id"`
	ShapeId       string  `db:"shape_id" json:"shape_id"`
	StartTime     int     `db:"start_time" json:"start_time"`
	EndTime       int     `db:"end_time" json:"end_time"`
	TripDistance  float64 `db:"trip_distance" json:"trip_distance"`
}

// RecordTrips saves trips to database in batch
func RecordTrips(trips []*Trip, dsTx *DataSetTransaction) error {
	for _, trip := range trips {
		trip.DataSetId = dsTx.DS.Id
	}
	statementString := "insert into trip ( " +
		"data_set_id, " +
		"trip_id, " +
		"route_id, " +
		"service_id, " +
		"trip_headsign, " +
		"trip_short_name, " +
		"direction_id, " +
		"block_id, " +
		"shape_id," +
		"start_time, " +
		"end_time, " +
		"trip_distance) " +
		"values (" +
		":data_set_id, " +
		":trip_id, " +
		":route_id, " +
		":service_id, " +
		":trip_headsign, " +
		":trip_short_name, " +
		":direction_id, " +
		":block_id, " +
		":shape_id," +
		":start_time, " +
		":end_time, " +
		":trip_distance)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, trips)
	return err

}

// TripInstance is a Trip on a specific service date with its scheduled stops and shape points loaded
type TripInstance struct {
	Trip
	ServiceDate       time.Time           `json:"service_date"`
	StopTimeInstances []*StopTimeInstance `json:"stop_time_instances"`
	Shapes            []*Shape            `json:"shapes"`
}

func (t *TripInstance) FirstStopTimeInstance() *StopTimeInstance {
	if len(t.StopTimeInstances) == 0 {
		return nil
	}
	return t.StopTimeInstances[0]
}

func (t *TripInstance) LastStopTimeInstance() *StopTimeInstance {
	lastIndex := len(t.StopTimeInstances) - 1
	if lastIndex < 0 {
		return nil
	}
	return t.StopTimeInstances[lastIndex]
}

// MissingTripInstances is returned by GetTripInstances when some of the requested trips
// could not be fully loaded. Remaining trips are safe to use, but the error should be logged
type MissingTripInstances struct {
	DataSetId       int64
	MissingTripIds  []string
	MissingShapeIds []string
}

func (m *MissingTripInstances) Error() string {
	return fmt.Sprintf("tripids not found or incomplete for dataSetId:%d missingTrips:[%s], missingShapeIds:[%s]",
		m.DataSetId,
		strings.Join(m.MissingTripIds, ","),
		strings.Join(m.MissingShapeIds, ","))
}

// GetTripInstances loads trip instances for tripIds on serviceDate.
// if any tripIds or shapes could not be loaded error will be of MissingTripInstances, in which case
// it's safe to continue with the trips that were loaded, but the error should be logged
func GetTripInstances(db *sqlx.DB,
	dataSet *DataSet,
	serviceDate time.Time,
	tripIds []string) (map[string]*TripInstance, error) {

	serviceDate = Get12AmTime(serviceDate)

	//load all stopTimes for requested tripIds
	stopTimeMap, missingTripIds, err := GetStopTimeInstances(db, serviceDate, dataSet.Id, tripIds)
	if err != nil {
		return nil, err
	}

	//if some tripIds couldn't be found remove them from the requested tripIds
	if len(missingTripIds) > 0 {
		tripIds = removeStringsFromSlice(tripIds, missingTripIds)
		//no more tripIds to load, just return error, as there are no results
		if len(tripIds) == 0 {
			return nil, &MissingTripInstances{
				DataSetId:      dataSet.Id,
				MissingTripIds: missingTripIds,
			}
		}
	}

	tripInstanceByTripId, err := getTripInstances(db, tripIds, dataSet, serviceDate, stopTimeMap)
	if err != nil {
		return nil, err
	}

	//load any shape list available into trips
	missingShapeIds, err := loadShapesIntoTrips(tripInstanceByTripId, db, dataSet)
	if err != nil {
		return nil, err
	}

	//only return MissingTripInstances if something was missed
	if len(missingTripIds) > 0 || len(missingShapeIds) > 0 {
		return tripInstanceByTripId, &MissingTripInstances{
			DataSetId:       dataSet.Id,
			MissingTripIds:  missingTripIds,
			MissingShapeIds: missingShapeIds,
		}
	}

	return tripInstanceByTripId, nil
}

func getTripInstances(db *sqlx.DB,
	tripIds []string,
	dataSet *DataSet,
	serviceDate time.Time,
	stopTimeMap map[string][]*StopTimeInstance) (map[string]*TripInstance, error) {

	results := make(map[string]*TripInstance)

	statementString := "select * from trip where data_set_id = :data_set_id and trip_id in (:trip_ids)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSet.Id,
		"trip_ids":    tripIds,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	// iterate over each row
	for rows.Next() {
		tripInstance := TripInstance{}
		err = rows.StructScan(&tripInstance)
		if err != nil {
			return nil, err
		}
		stopTimes, present := stopTimeMap[tripInstance.TripId]
		if !present {
			return nil, fmt.Errorf("found no scheduled stops in dataSet id: %d, tripId: %s",
				tripInstance.DataSetId, tripInstance.TripId)
		}
		tripInstance.ServiceDate = serviceDate
		tripInstance.StopTimeInstances = stopTimes
		results[tripInstance.TripId] = &tripInstance
	}

	// check the error from rows
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	return results, nil
}

func loadShapesIntoTrips(tripsByTripId map[string]*TripInstance,
	db *sqlx.DB,
	dataSet *DataSet) ([]string, error) {

	//find shapeIds needed
	shapeIdMap := make(map[string]bool)
	shapeIds := make([]string, 0)
	for _, tripInstance := range tripsByTripId {
		if _, present := shapeIdMap[tripInstance.ShapeId]; !present {
			shapeIdMap[tripInstance.ShapeId] = true
			shapeIds = append(shapeIds, tripInstance.ShapeId)
		}
	}

	//load shapes
	mappedShapes, missingShapeIds, err := GetShapes(db, dataSet.Id, shapeIds)
	if err != nil {
		return missingShapeIds, err
	}

	for _, tripInstance := range tripsByTripId {
		if shapes, present := mappedShapes[tripInstance.ShapeId]; present {
			tripInstance.Shapes = shapes
		}

	}
	return missingShapeIds, nil
}

func removeStringsFromSlice(target []string, toRemove []string) []string {
	removeMap := make(map[string]bool)
	for _, s := range toRemove {
		removeMap[s] = true
	}
	var newSlice []string
	for _, s := range target {
		if _, exists := removeMap[s]; !exists {
			newSlice = append(newSlice, s)
		}
	}
	return newSlice
}

// GetTripIds retrieves tripIds for dataSet. routeIds optionally limits results to those
// routes and serviceIds optionally limits results to trips on those services
func GetTripIds(db *sqlx.DB,
	dataSet *DataSet,
	routeIds []string,
	serviceIds []string) ([]string, error) {

	query := "select trip_id from trip where data_set_id = :data_set_id"
	argMap := map[string]interface{}{
		"data_set_id": dataSet.Id,
	}
	if len(routeIds) > 0 {
		query += " and route_id in (:route_ids)"
		argMap["route_ids"] = routeIds
	}
	if len(serviceIds) > 0 {
		query += " and service_id in (:service_ids)"
		argMap["service_ids"] = serviceIds
	}
	query += " order by trip_id"

	preparedQuery, args, err := database.PrepareNamedQueryFromMap(query, db, argMap)
	if err != nil {
		return nil, err
	}
	var tripIds []string
	err = db.Select(&tripIds, preparedQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve trip_ids from trip table. query:%s error: %w", query, err)
	}
	return tripIds, nil
}
