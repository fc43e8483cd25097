package linkspeed

import (
	"math"
	"time"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

//makeLinkId builds the trip independent identifier of a stop pair
func makeLinkId(fromStopId string, toStopId string) string {
	return fromStopId + "-" + toStopId
}

//unixFloatTime converts fractional unix epoch seconds to time.Time
func unixFloatTime(seconds float64) time.Time {
	whole, fraction := math.Modf(seconds)
	return time.Unix(int64(whole), int64(fraction*float64(time.Second)))
}

//linkDistance measures the along route distance of a stop pair. when the shape measurement
//degenerates to nothing, which happens with stops projected to the same shape point, the
//straight line distance between the stops is used instead and flagged as such
func linkDistance(from stopDistance, to stopDistance) (float64, gtfs.DistanceSource) {
	distance := to.distance - from.distance
	if distance > 0 {
		return distance, gtfs.DistanceFromShape
	}
	return simpleLatLngDistance(from.lat, from.lon, to.lat, to.lon), gtfs.DistanceDirect
}

//buildLinks turns consecutive stop crossings into one gtfs.LinkRecord per stop pair.
//records that fail a validity rule are retained with the reason rather than dropped, so
//aggregation can report coverage. validity rules apply in order, first match wins:
//geometry mismatch, missing crossing data, non positive duration, implausible speed
func buildLinks(trip *gtfs.TripInstance,
	vehicleId string,
	stops []stopDistance,
	pairMismatch []bool,
	crossings []stopCrossing,
	conf *Conf) []*gtfs.LinkRecord {

	results := make([]*gtfs.LinkRecord, 0, len(stops))
	for i := 0; i+1 < len(stops); i++ {
		from := stops[i]
		to := stops[i+1]
		distance, distanceSource := linkDistance(from, to)

		record := &gtfs.LinkRecord{
			DataSetId:      trip.DataSetId,
			ServiceDate:    trip.ServiceDate,
			TripId:         trip.TripId,
			RouteId:        trip.RouteId,
			DirectionId:    trip.DirectionId,
			VehicleId:      vehicleId,
			LinkId:         makeLinkId(from.stopId, to.stopId),
			FromStopId:     from.stopId,
			ToStopId:       to.stopId,
			DistanceMeters: distance,
			DistanceSource: distanceSource,
		}

		fromCrossing := crossings[i]
		toCrossing := crossings[i+1]
		switch {
		case pairMismatch[i]:
			record.Validity = gtfs.LinkGeometryMismatch
		case fromCrossing.confidence == crossingMissing || toCrossing.confidence == crossingMissing:
			record.Validity = gtfs.LinkNoData
		default:
			record.StartTime = unixFloatTime(fromCrossing.seconds)
			record.EndTime = unixFloatTime(toCrossing.seconds)
			record.DurationSeconds = toCrossing.seconds - fromCrossing.seconds
			if record.DurationSeconds <= 0 {
				record.Validity = gtfs.LinkNonPositiveDuration
				break
			}
			record.SpeedMetersPerSecond = distance / record.DurationSeconds
			if record.SpeedMetersPerSecond < conf.MinPlausibleSpeed ||
				record.SpeedMetersPerSecond > conf.MaxPlausibleSpeed {
				record.Validity = gtfs.LinkImplausibleSpeed
				break
			}
			record.Validity = gtfs.LinkValid
		}
		results = append(results, record)
	}
	return results
}
