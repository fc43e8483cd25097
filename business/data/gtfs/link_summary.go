package gtfs

import (
	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/jmoiron/sqlx"
	"time"
)

// LinkSpeedSummary aggregates valid LinkRecord speeds for one link on one route over a
// time-of-day bucket and day type. Recomputed on each aggregation run
type LinkSpeedSummary struct {
	DataSetId   int64  `db:"data_set_id" json:"data_set_id"`
	RouteId     string `db:"route_id" json:"route_id"`
	DirectionId int    `db:"direction_id" json:"direction_id"`
	LinkId      string `db:"link_id" json:"link_id"`
	FromStopId  string `db:"from_stop_id" json:"from_stop_id"`
	ToStopId    string `db:"to_stop_id" json:"to_stop_id"`
	//TimeBucket is the time-of-day bucket index produced by the bucketing rule, by default
	//the hour of the service day the link traversal began in
	TimeBucket int    `db:"time_bucket" json:"time_bucket"`
	DayType    string `db:"day_type" json:"day_type"`
	//SampleCount is the number of speeds remaining after outlier trimming
	SampleCount int `db:"sample_count" json:"sample_count"`
	//TrimmedCount is the number of speeds discarded by outlier trimming
	TrimmedCount int     `db:"trimmed_count" json:"trimmed_count"`
	MedianSpeed  float64 `db:"median_speed" json:"median_speed"`
	P25Speed     float64 `db:"p25_speed" json:"p25_speed"`
	P75Speed     float64 `db:"p75_speed" json:"p75_speed"`
	MeanSpeed    float64 `db:"mean_speed" json:"mean_speed"`
	MinSpeed     float64 `db:"min_speed" json:"min_speed"`
	MaxSpeed     float64 `db:"max_speed" json:"max_speed"`
	//LowConfidence is set when SampleCount fell below the configured minimum
	LowConfidence bool      `db:"low_confidence" json:"low_confidence"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RecordLinkSpeedSummaries saves summaries to database in batch
func RecordLinkSpeedSummaries(summaries []*LinkSpeedSummary, db *sqlx.DB) error {
	if len(summaries) == 0 {
		return nil
	}
	now := time.Now()
	for _, summary := range summaries {
		summary.CreatedAt = now
	}

	statementString := "insert into link_speed_summary ( " +
		"data_set_id, " +
		"route_id, " +
		"direction_id, " +
		"link_id, " +
		"from_stop_id, " +
		"to_stop_id, " +
		"time_bucket, " +
		"day_type, " +
		"sample_count, " +
		"trimmed_count, " +
		"median_speed, " +
		"p25_speed, " +
		"p75_speed, " +
		"mean_speed, " +
		"min_speed, " +
		"max_speed, " +
		"low_confidence, " +
		"created_at) " +
		"values (" +
		":data_set_id, " +
		":route_id, " +
		":direction_id, " +
		":link_id, " +
		":from_stop_id, " +
		":to_stop_id, " +
		":time_bucket, " +
		":day_type, " +
		":sample_count, " +
		":trimmed_count, " +
		":median_speed, " +
		":p25_speed, " +
		":p75_speed, " +
		":mean_speed, " +
		":min_speed, " +
		":max_speed, " +
		":low_confidence, " +
		":created_at)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, summaries)
	return err
}

// GetLinkSpeedSummariesForRoute retrieves summaries for routeId, optionally limited to a
// day type when dayType is non-empty
func GetLinkSpeedSummariesForRoute(db *sqlx.DB,
	dataSetId int64,
	routeId string,
	dayType string) ([]*LinkSpeedSummary, error) {

	statementString := "select * from link_speed_summary where data_set_id = :data_set_id " +
		"and route_id = :route_id"
	argMap := map[string]interface{}{
		"data_set_id": dataSetId,
		"route_id":    routeId,
	}
	if dayType != "" {
		statementString += " and day_type = :day_type"
		argMap["day_type"] = dayType
	}
	statementString += " order by link_id, day_type, time_bucket"

	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, argMap)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]*LinkSpeedSummary, 0)
	for rows.Next() {
		summary := LinkSpeedSummary{}
		err = rows.StructScan(&summary)
		if err != nil {
			return nil, err
		}
		results = append(results, &summary)
	}
	return results, rows.Err()
}
