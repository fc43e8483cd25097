package linkspeed

import (
	"log"
	"time"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

type testLogWriter struct {
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "LINKSPEED_BATCH : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

//metersPerLatDegree matches the approximation used by simpleLatLngDistance, so fixtures built
//with latForMeters land at predictable along-route distances
const metersPerLatDegree = 111300.0

//latForMeters places a point meters north of the equator along longitude zero
func latForMeters(meters float64) float64 {
	return meters / metersPerLatDegree
}

//lonForMeters places a point approximately meters east at equatorial latitudes
func lonForMeters(meters float64) float64 {
	return meters / metersPerLatDegree
}

//makeTestShapes builds a straight south to north shape along longitude zero with vertices at
//the requested meter marks
func makeTestShapes(shapeId string, meterMarks ...float64) []*gtfs.Shape {
	shapes := make([]*gtfs.Shape, 0, len(meterMarks))
	for i, meters := range meterMarks {
		shapes = append(shapes, &gtfs.Shape{
			ShapeId:         shapeId,
			ShapePtLat:      latForMeters(meters),
			ShapePtLng:      0,
			ShapePtSequence: i,
		})
	}
	return shapes
}

//makeTestGeometry builds a routeGeometry over a straight shape of the given length
func makeTestGeometry(lengthMeters float64) *routeGeometry {
	geometry, err := makeRouteGeometry("shape1", makeTestShapes("shape1", 0, lengthMeters))
	if err != nil {
		panic(err)
	}
	return geometry
}

//testServiceDate is a Wednesday with no DST transition or holiday
var testServiceDate = time.Date(2023, 3, 1, 0, 0, 0, 0, time.Local)

//makeTestTrip builds a TripInstance on a straight shape with stops at the given meter marks.
//stop ids are "stop1", "stop2", ... in stop order
func makeTestTrip(tripId string, shapeLengthMeters float64, stopMeterMarks ...float64) *gtfs.TripInstance {
	trip := &gtfs.TripInstance{
		Trip: gtfs.Trip{
			DataSetId:   1,
			TripId:      tripId,
			RouteId:     "100",
			DirectionId: 0,
			ShapeId:     "shape1",
		},
		ServiceDate: testServiceDate,
		Shapes:      makeTestShapes("shape1", 0, shapeLengthMeters),
	}
	for i, meters := range stopMeterMarks {
		trip.StopTimeInstances = append(trip.StopTimeInstances, &gtfs.StopTimeInstance{
			StopTime: gtfs.StopTime{
				TripId:       tripId,
				StopSequence: uint32(i + 1),
				StopId:       "stop" + string(rune('1'+i)),
				StopLat:      latForMeters(meters),
				StopLon:      0,
			},
			FirstStop: i == 0,
		})
	}
	return trip
}

//makeTestPosition builds a raw position report on the straight test shape
func makeTestPosition(tripId string, vehicleId string, timestamp int64, meters float64) *gtfs.VehiclePosition {
	return &gtfs.VehiclePosition{
		DataSetId: 1,
		TripId:    tripId,
		VehicleId: vehicleId,
		Timestamp: timestamp,
		Latitude:  latForMeters(meters),
		Longitude: 0,
	}
}

//makeTestFixes builds a cleaned trace directly from timestamp and distance pairs
func makeTestFixes(pairs ...[2]float64) []projectedFix {
	fixes := make([]projectedFix, 0, len(pairs))
	for _, pair := range pairs {
		fixes = append(fixes, projectedFix{
			positionFix: positionFix{timestamp: int64(pair[0])},
			distance:    pair[1],
		})
	}
	return fixes
}

//makeTestStops builds located stops directly from meter marks
func makeTestStops(meterMarks ...float64) []stopDistance {
	stops := make([]stopDistance, 0, len(meterMarks))
	for i, meters := range meterMarks {
		stops = append(stops, stopDistance{
			stopId:       "stop" + string(rune('1'+i)),
			stopSequence: uint32(i + 1),
			lat:          latForMeters(meters),
			lon:          0,
			distance:     meters,
		})
	}
	return stops
}

func testConf() *Conf {
	conf := DefaultConf()
	return &conf
}

func closeEnough(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
