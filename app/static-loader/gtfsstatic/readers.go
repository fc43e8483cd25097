package gtfsstatic

import (
	"fmt"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

const insertBatchSize = 250

// gtfsRowReader reads rows from one gtfs csv file and records them with a DataSetTransaction
type gtfsRowReader interface {

	// addRow reads the parser's current row and records it, or stores it to be recorded
	// in a batch later via flush
	addRow(parser *csvParser, dsTx *gtfs.DataSetTransaction) error

	// flush records any pending batched rows
	flush(dsTx *gtfs.DataSetTransaction) error
}

type calendarRowReader struct{}

func (r *calendarRowReader) addRow(parser *csvParser, dsTx *gtfs.DataSetTransaction) error {
	calendar, err := buildCalendar(parser)
	if err != nil {
		return err
	}
	return gtfs.RecordCalendar(calendar, dsTx)
}

func (r *calendarRowReader) flush(_ *gtfs.DataSetTransaction) error {
	return nil
}

func buildCalendar(parser *csvParser) (*gtfs.Calendar, error) {
	calendar := gtfs.Calendar{
		ServiceId: parser.getString("service_id", false),
		Monday:    parser.getInt("monday", false),
		Tuesday:   parser.getInt("tuesday", false),
		Wednesday: parser.getInt("wednesday", false),
		Thursday:  parser.getInt("thursday", false),
		Friday:    parser.getInt("friday", false),
		Saturday:  parser.getInt("saturday", false),
		Sunday:    parser.getInt("sunday", false),
		StartDate: parser.getGTFSDatePointer("start_date", false),
		EndDate:   parser.getGTFSDatePointer("end_date", false),
	}
	return &calendar, parser.getError()
}

type calendarDateRowReader struct{}

func (r *calendarDateRowReader) addRow(parser *csvParser, dsTx *gtfs.DataSetTransaction) error {
	calendarDate, err := buildCalendarDate(parser)
	if err != nil {
		return err
	}
	return gtfs.RecordCalendarDate(calendarDate, dsTx)
}

func (r *calendarDateRowReader) flush(_ *gtfs.DataSetTransaction) error {
	return nil
}

func buildCalendarDate(parser *csvParser) (*gtfs.CalendarDate, error) {
	calendarDate := gtfs.CalendarDate{
		ServiceId:     parser.getString("service_id", false),
		Date:          parser.getGTFSDate("date", false),
		ExceptionType: parser.getInt("exception_type", false),
	}
	return &calendarDate, parser.getError()
}

// stopLocation is a stop's position from a stops.txt row
type stopLocation struct {
	lat float64
	lon float64
}

// stopRowReader collects stop locations from stops.txt. stops are not recorded on their
// own, every stop_time row carries its stop's position instead
type stopRowReader struct {
	locationsByStopId map[string]stopLocation
}

func newStopRowReader() *stopRowReader {
	return &stopRowReader{
		locationsByStopId: make(map[string]stopLocation),
	}
}

func (r *stopRowReader) addRow(parser *csvParser, _ *gtfs.DataSetTransaction) error {
	stopId := parser.getString("stop_id", false)
	lat := parser.getFloat64("stop_lat", false)
	lon := parser.getFloat64("stop_lon", false)
	if err := parser.getError(); err != nil {
		return err
	}
	r.locationsByStopId[stopId] = stopLocation{lat: lat, lon: lon}
	return nil
}

func (r *stopRowReader) flush(_ *gtfs.DataSetTransaction) error {
	return nil
}

// shapeRowReader batches shape point inserts and tracks the furthest distance seen per
// shapeId for the trip reader's trip distance
type shapeRowReader struct {
	batchedShapes   []*gtfs.Shape
	shapeMaxDistMap map[string]float64
}

func newShapeRowReader() *shapeRowReader {
	return &shapeRowReader{
		shapeMaxDistMap: make(map[string]float64),
	}
}

func (r *shapeRowReader) addRow(parser *csvParser, dsTx *gtfs.DataSetTransaction) error {
	shape, err := buildShape(parser)
	if err != nil {
		return err
	}
	r.batchedShapes = append(r.batchedShapes, shape)
	if shape.ShapeDistTraveled != nil && *shape.ShapeDistTraveled > r.shapeMaxDistMap[shape.ShapeId] {
		r.shapeMaxDistMap[shape.ShapeId] = *shape.ShapeDistTraveled
	}

	if len(r.batchedShapes) == insertBatchSize {
		return r.flush(dsTx)
	}
	return nil
}

func (r *shapeRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedShapes) == 0 {
		return nil
	}
	err := gtfs.RecordShapes(r.batchedShapes, dsTx)
	if err != nil {
		return err
	}
	r.batchedShapes = make([]*gtfs.Shape, 0)
	return nil
}

func buildShape(parser *csvParser) (*gtfs.Shape, error) {
	shape := gtfs.Shape{
		ShapeId:           parser.getString("shape_id", false),
		ShapePtLat:        parser.getFloat64("shape_pt_lat", false),
		ShapePtLng:        parser.getFloat64("shape_pt_lon", false),
		ShapePtSequence:   parser.getInt("shape_pt_sequence", false),
		ShapeDistTraveled: parser.getFloat64Pointer("shape_dist_traveled", true),
	}
	return &shape, parser.getError()
}

// tripSpan tracks the scheduled start and end of one trip as stop_time rows are read
type tripSpan struct {
	startTime int
	endTime   int
}

// stopTimeRowReader batches stop_time inserts, joining each row with its stop's position
// collected by stopRowReader, and tracks per trip schedule spans for the trip reader
type stopTimeRowReader struct {
	stops            *stopRowReader
	batchedStopTimes []*gtfs.StopTime
	tripSpans        map[string]*tripSpan
}

func newStopTimeRowReader(stops *stopRowReader) *stopTimeRowReader {
	return &stopTimeRowReader{
		stops:     stops,
		tripSpans: make(map[string]*tripSpan),
	}
}

func (r *stopTimeRowReader) addRow(parser *csvParser, dsTx *gtfs.DataSetTransaction) error {
	stopTime, err := buildStopTime(parser, r.stops)
	if err != nil {
		return err
	}
	r.batchedStopTimes = append(r.batchedStopTimes, stopTime)
	r.addTripSpan(stopTime)

	if len(r.batchedStopTimes) == insertBatchSize {
		return r.flush(dsTx)
	}
	return nil
}

func (r *stopTimeRowReader) addTripSpan(stopTime *gtfs.StopTime) {
	span, present := r.tripSpans[stopTime.TripId]
	if !present {
		r.tripSpans[stopTime.TripId] = &tripSpan{
			startTime: stopTime.ArrivalTime,
			endTime:   stopTime.DepartureTime,
		}
		return
	}
	if stopTime.ArrivalTime < span.startTime {
		span.startTime = stopTime.ArrivalTime
	}
	if stopTime.DepartureTime > span.endTime {
		span.endTime = stopTime.DepartureTime
	}
}

func (r *stopTimeRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedStopTimes) == 0 {
		return nil
	}
	err := gtfs.RecordStopTimes(r.batchedStopTimes, dsTx)
	if err != nil {
		return err
	}
	r.batchedStopTimes = make([]*gtfs.StopTime, 0)
	return nil
}

func buildStopTime(parser *csvParser, stops *stopRowReader) (*gtfs.StopTime, error) {
	stopTime := gtfs.StopTime{
		TripId:            parser.getString("trip_id", false),
		StopId:            parser.getString("stop_id", false),
		StopSequence:      uint32(parser.getInt("stop_sequence", false)),
		ArrivalTime:       parser.getGTFSTime("arrival_time", false),
		DepartureTime:     parser.getGTFSTime("departure_time", false),
		ShapeDistTraveled: parser.getFloat64("shape_dist_traveled", true),
		Timepoint:         parser.getInt("timepoint", true),
	}
	if err := parser.getError(); err != nil {
		return nil, err
	}
	location, present := stops.locationsByStopId[stopTime.StopId]
	if !present {
		return nil, fmt.Errorf("stop_time on line %d references stop %s not present in stops.txt",
			parser.line, stopTime.StopId)
	}
	stopTime.StopLat = location.lat
	stopTime.StopLon = location.lon
	return &stopTime, nil
}

// tripRowReader batches trip inserts, filling each trip's schedule span and distance from
// what the stop_time and shape readers saw
type tripRowReader struct {
	stopTimes    *stopTimeRowReader
	shapes       *shapeRowReader
	batchedTrips []*gtfs.Trip
}

func newTripRowReader(stopTimes *stopTimeRowReader, shapes *shapeRowReader) *tripRowReader {
	return &tripRowReader{
		stopTimes: stopTimes,
		shapes:    shapes,
	}
}

func (r *tripRowReader) addRow(parser *csvParser, dsTx *gtfs.DataSetTransaction) error {
	trip, err := buildTrip(parser, r.stopTimes, r.shapes)
	if err != nil {
		return err
	}
	r.batchedTrips = append(r.batchedTrips, trip)

	if len(r.batchedTrips) == insertBatchSize {
		return r.flush(dsTx)
	}
	return nil
}

func (r *tripRowReader) flush(dsTx *gtfs.DataSetTransaction) error {
	if len(r.batchedTrips) == 0 {
		return nil
	}
	err := gtfs.RecordTrips(r.batchedTrips, dsTx)
	if err != nil {
		return err
	}
	r.batchedTrips = make([]*gtfs.Trip, 0)
	return nil
}

func buildTrip(parser *csvParser, stopTimes *stopTimeRowReader, shapes *shapeRowReader) (*gtfs.Trip, error) {
	trip := gtfs.Trip{
		TripId:        parser.getString("trip_id", false),
		RouteId:       parser.getString("route_id", false),
		ServiceId:     parser.getString("service_id", false),
		TripHeadsign:  parser.getStringPointer("trip_headsign", true),
		TripShortName: parser.getStringPointer("trip_short_name", true),
		DirectionId:   parser.getInt("direction_id", true),
		BlockId:       parser.getString("block_id", true),
		ShapeId:       parser.getString("shape_id", false),
	}
	if err := parser.getError(); err != nil {
		return nil, err
	}
	if span, present := stopTimes.tripSpans[trip.TripId]; present {
		trip.StartTime = span.startTime
		trip.EndTime = span.endTime
	}
	trip.TripDistance = shapes.shapeMaxDistMap[trip.ShapeId]
	return &trip, nil
}
