package gtfs

import (
	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/jmoiron/sqlx"
)

/*
Shape contains rows from the GTFS shapes.txt file
*/
type Shape struct {
	DataSetId         int64    `db:"data_set_id" json:"data_set_id"`
	ShapeId           string   `db:"shape_id" json:"shape_id"`
	ShapePtLat        float64  `db:"shape_pt_lat" json:"shape_pt_lat"`
	ShapePtLng        float64  `db:"shape_pt_lon" json:"shape_pt_lon"`
	ShapePtSequence   int      `db:"shape_pt_sequence" json:"shape_pt_sequence"`
	ShapeDistTraveled *float64 `db:"shape_dist_traveled" json:"shape_dist_traveled"`
}

// RecordShapes saves shapes to database in a batch
func RecordShapes(shapes []*Shape, dsTx *DataSetTransaction) error {
	for _, shape := range shapes {
		shape.DataSetId = dsTx.DS.Id
	}

	statementString := "insert into shape ( " +
		"data_set_id, " +
		"shape_id, " +
		"shape_pt_lat, " +
		"shape_pt_lon, " +
		"shape_pt_sequence, " +
		"shape_dist_traveled) " +
		"values (" +
		":data_set_id, " +
		":shape_id, " +
		":shape_pt_lat, " +
		":shape_pt_lon, " +
		":shape_pt_sequence, " +
		":shape_dist_traveled)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, shapes)
	return err
}

// GetShapes loads shape point lists for shapeIds, ordered by point sequence.
// returns map keyed by shapeId and a slice of any shapeIds that had no points
func GetShapes(db *sqlx.DB, dataSetId int64, shapeIds []string) (map[string][]*Shape, []string, error) {
	results := make(map[string][]*Shape)
	missingShapeIds := make([]string, 0)

	statementString := "select * from shape where data_set_id = :data_set_id and shape_id in (:shape_ids) " +
		"order by shape_id, shape_pt_sequence"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"shape_ids":   shapeIds,
	})
	if err != nil {
		return nil, missingShapeIds, err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		shape := Shape{}
		err = rows.StructScan(&shape)
		if err != nil {
			return nil, missingShapeIds, err
		}
		results[shape.ShapeId] = append(results[shape.ShapeId], &shape)
	}
	err = rows.Err()
	if err != nil {
		return nil, missingShapeIds, err
	}

	for _, shapeId := range shapeIds {
		if _, present := results[shapeId]; !present {
			missingShapeIds = append(missingShapeIds, shapeId)
		}
	}
	return results, missingShapeIds, nil
}
