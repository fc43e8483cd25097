// Package linkspeed infers per-link travel speeds for transit trips by projecting vehicle
// position traces onto route geometry, estimating stop crossing times, and aggregating the
// resulting link traversals
package linkspeed

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

//DwellPolicy selects how time a vehicle spends stationary at one location is charged between
//the links on either side of it
type DwellPolicy int

const (
	//DwellAtArrival treats a crossing as the first moment the vehicle reached the stop's
	//position, charging dwell to the downstream link
	DwellAtArrival DwellPolicy = iota
	//DwellAtDeparture uses the last report at the stop's position, charging dwell to the
	//upstream link
	DwellAtDeparture
)

//Conf contains all configurable parameters for link speed processing
type Conf struct {
	//TimeEpsilonSeconds merges near duplicate fix timestamps, keeping the first report
	TimeEpsilonSeconds int
	//MaxCorridorOffsetMeters rejects fixes further than this from the route geometry
	MaxCorridorOffsetMeters float64
	//MinPlausibleSpeed and MaxPlausibleSpeed bound valid link speeds in meters per second.
	//MaxPlausibleSpeed is also used to reject gps jumps between consecutive fixes
	MinPlausibleSpeed float64
	MaxPlausibleSpeed float64
	//BackwardToleranceMeters is how far a fix may regress along the route before it is
	//rejected as a backward teleport instead of dwell jitter
	BackwardToleranceMeters float64
	//ExtrapolationMarginMeters is how far past the ends of a trace a stop crossing may be
	//extrapolated before it is marked missing
	ExtrapolationMarginMeters float64
	//DwellPolicy selects which link dwell time is charged to
	DwellPolicy DwellPolicy
	//MinSampleCount flags aggregate groups with fewer samples as low confidence
	MinSampleCount int
	//OutlierTrimFactor is the interquartile range multiple used to trim aggregation outliers
	OutlierTrimFactor float64
	//Workers is the number of trips processed concurrently
	Workers int
	//Bucketing maps link start times to time-of-day buckets and day types.
	//nil uses hourly service day buckets with the holiday calendar
	Bucketing BucketingRule
}

//DefaultConf provides reasonable defaults for bus and light rail feeds
func DefaultConf() Conf {
	return Conf{
		TimeEpsilonSeconds:        2,
		MaxCorridorOffsetMeters:   100,
		MinPlausibleSpeed:         0.5,
		MaxPlausibleSpeed:         40,
		BackwardToleranceMeters:   15,
		ExtrapolationMarginMeters: 100,
		DwellPolicy:               DwellAtArrival,
		MinSampleCount:            5,
		OutlierTrimFactor:         1.5,
		Workers:                   4,
	}
}

//TripStatus summarizes the outcome of processing one trip instance
type TripStatus string

const (
	//TripOK means link records were produced, though individual links may still be invalid
	TripOK TripStatus = "ok"
	//TripInsufficientData means the trip's trace could not be cleaned to at least 2 usable
	//fixes, no estimate is possible
	TripInsufficientData TripStatus = "insufficient_data"
	//TripGeometryError means the trip's shape was malformed and the trip could not be processed
	TripGeometryError TripStatus = "geometry_error"
)

//TripResult is the outcome of the per trip pipeline for one trip instance. every trip
//instance submitted to RunBatch produces exactly one TripResult
type TripResult struct {
	TripId    string
	RouteId   string
	VehicleId string
	Status    TripStatus
	//Links holds one record per consecutive stop pair, including invalid ones.
	//empty when Status is not TripOK
	Links []*gtfs.LinkRecord
	//RetainedFixes and droppedFixes describe what cleaning did to the raw trace
	RetainedFixes int
	DroppedFixes  int
}

//Coverage reports what fraction of the batch produced usable estimates
type Coverage struct {
	Trips              int
	TripsWithValidLink int
	Links              int
	ValidLinks         int
}

func (c Coverage) String() string {
	return fmt.Sprintf("Coverage{ trips:%d/%d links:%d/%d }",
		c.TripsWithValidLink, c.Trips, c.ValidLinks, c.Links)
}

//BatchResult holds everything produced by one batch run
type BatchResult struct {
	TripResults []TripResult
	Summaries   []*gtfs.LinkSpeedSummary
	//GeometryErrors holds one diagnostic per shape that could not be processed
	GeometryErrors []*GeometryError
	Coverage       Coverage
}

//AllLinkRecords collects every trip's link records in trip order
func (b *BatchResult) AllLinkRecords() []*gtfs.LinkRecord {
	results := make([]*gtfs.LinkRecord, 0)
	for _, tripResult := range b.TripResults {
		results = append(results, tripResult.Links...)
	}
	return results
}

//RunBatch processes every trip instance and aggregates the results. trips are independent of
//each other, sharing only read-only geometry, so they are processed by a pool of workers with
//no locking. aggregation runs after all per trip work completes. a bad trace or stop never
//aborts the batch, failures are captured per trip in the results
func RunBatch(log *log.Logger,
	trips []*gtfs.TripInstance,
	positionsByTripId map[string][]*gtfs.VehiclePosition,
	conf Conf) *BatchResult {

	if conf.Workers <= 0 {
		conf.Workers = DefaultConf().Workers
	}
	if conf.Bucketing == nil {
		conf.Bucketing = makeHourlyBucketingRule()
	}

	//build each shape's geometry once up front, shared read-only by all workers
	geometries := make(map[string]*routeGeometry)
	geometryErrors := make([]*GeometryError, 0)
	seenShapeIds := make(map[string]bool)
	for _, trip := range trips {
		if seenShapeIds[trip.ShapeId] {
			continue
		}
		seenShapeIds[trip.ShapeId] = true
		geometry, err := makeRouteGeometry(trip.ShapeId, trip.Shapes)
		if err != nil {
			geometryError := err.(*GeometryError)
			log.Printf("unable to process trips on shapeId %s, error:%v\n", trip.ShapeId, geometryError)
			geometryErrors = append(geometryErrors, geometryError)
			continue
		}
		geometries[trip.ShapeId] = geometry
	}

	jobs := make(chan *gtfs.TripInstance)
	tripResults := make(chan TripResult)

	wg := sync.WaitGroup{}
	for i := 0; i < conf.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for trip := range jobs {
				tripResults <- processTrip(trip, geometries[trip.ShapeId],
					positionsByTripId[trip.TripId], &conf)
			}
		}()
	}

	go func() {
		for _, trip := range trips {
			jobs <- trip
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(tripResults)
	}()

	result := BatchResult{
		GeometryErrors: geometryErrors,
	}
	for tripResult := range tripResults {
		result.TripResults = append(result.TripResults, tripResult)
	}
	//restore a deterministic order after the parallel phase
	sort.Slice(result.TripResults, func(i, j int) bool {
		return result.TripResults[i].TripId < result.TripResults[j].TripId
	})

	for _, tripResult := range result.TripResults {
		result.Coverage.Trips++
		tripHasValidLink := false
		for _, link := range tripResult.Links {
			result.Coverage.Links++
			if link.IsValid() {
				result.Coverage.ValidLinks++
				tripHasValidLink = true
			}
		}
		if tripHasValidLink {
			result.Coverage.TripsWithValidLink++
		}
	}

	result.Summaries = aggregateLinks(result.AllLinkRecords(), &conf, conf.Bucketing)

	log.Printf("processed %d trips into %d link records and %d summaries, %s\n",
		len(result.TripResults), result.Coverage.Links, len(result.Summaries), result.Coverage)
	return &result
}

//processTrip runs the per trip pipeline stages: clean and project the trace, estimate stop
//crossings, build link records. pure function of its arguments, safe to run concurrently
func processTrip(trip *gtfs.TripInstance,
	geometry *routeGeometry,
	rawPositions []*gtfs.VehiclePosition,
	conf *Conf) TripResult {

	result := TripResult{
		TripId:    trip.TripId,
		RouteId:   trip.RouteId,
		VehicleId: vehicleIdFromPositions(rawPositions),
	}

	if geometry == nil {
		result.Status = TripGeometryError
		return result
	}
	if len(trip.StopTimeInstances) < 2 {
		result.Status = TripInsufficientData
		return result
	}

	fixes, dropStats := cleanTrace(rawPositions, geometry, conf)
	result.RetainedFixes = len(fixes)
	result.DroppedFixes = dropStats.total()
	if len(fixes) < 2 {
		result.Status = TripInsufficientData
		return result
	}

	stops, pairMismatch := geometry.stopDistances(trip)
	crossings := estimateCrossings(fixes, stops, conf)
	result.Links = buildLinks(trip, result.VehicleId, stops, pairMismatch, crossings, conf)
	result.Status = TripOK
	return result
}

func vehicleIdFromPositions(rawPositions []*gtfs.VehiclePosition) string {
	for _, position := range rawPositions {
		if position.VehicleId != "" {
			return position.VehicleId
		}
	}
	return ""
}
