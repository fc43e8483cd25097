package linkspeed

import (
	"fmt"
	"math"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

// GeometryError indicates a route geometry is malformed. No trips using the shape can be
// processed, but other routes in the batch are unaffected
type GeometryError struct {
	ShapeId string
	Reason  string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("bad route geometry for shapeId:%s: %s", e.ShapeId, e.Reason)
}

//offsetTieBreakMeters is how close two segment projections must be, in perpendicular offset,
//before the segment nearest the previously projected distance is preferred. gps noise makes
//offsets within this band indistinguishable
const offsetTieBreakMeters = 10.0

//simpleLatLngDistance calculates the approximate distance between two pairs of coordinates with simplistic
//calculation of longitudinal distance based on latitudes.
//provides adequately accurate results for coordinates that are close together (in the same transit area)
//will not produce good results for locations where longitude rolls over from -179.9 to 179.9
//returns distance in METERS
func simpleLatLngDistance(lat1, lon1, lat2, lon2 float64) float64 {
	//take average latitude and convert to radians
	lat := lat1 + lat2
	if lat != 0 { // don't divide by zero
		lat = (lat / 2) * 0.01745329
	}

	diffLat := 111300 * (lat1 - lat2)
	// at equator one degree is 111300 meters, use average latitude to convert
	diffLon := 111300 * math.Cos(lat) * (lon1 - lon2)

	return math.Sqrt((diffLon * diffLon) + (diffLat * diffLat))
}

//nearestLatLngToLineFromPoint calculates the approximate nearest point on a line from startLat, startLng to
//endLat,endLon from pointLat, pointLon
//will not produce good results for locations where longitude rolls over from -179.9 to 179.9
//results should be close enough for coordinates that are close together (in the same transit area)
//returns resulting latitude and longitude and the progress along the line between 0 and 1
func nearestLatLngToLineFromPoint(startLat, startLon, endLat, endLon, pointLat, pointLon float64) (float64, float64, float64) {
	pointStartLonDiff := pointLon - startLon
	pointStartLatDiff := pointLat - startLat
	endStartLonDiff := endLon - startLon
	endStartLatDiff := endLat - startLat
	startEndDiffSquared := (endStartLonDiff * endStartLonDiff) + (endStartLatDiff * endStartLatDiff)
	t := 0.0
	if startEndDiffSquared > 0 {
		pointsDiffSquared := pointStartLonDiff*endStartLonDiff + pointStartLatDiff*endStartLatDiff
		t = math.Min(1, math.Max(0, pointsDiffSquared/startEndDiffSquared))
	}
	return startLat + endStartLatDiff*t, startLon + endStartLonDiff*t, t
}

//routeGeometry is a trip shape prepared for linear referencing. Cumulative distances are
//computed once when built and the structure is read only afterward, so it can be shared by
//every trip on the shape without locking
type routeGeometry struct {
	shapeId string
	lats    []float64
	lons    []float64
	//cumulativeDistances[i] is meters along the shape from the first vertex to vertex i
	cumulativeDistances []float64
}

//makeRouteGeometry builds a routeGeometry from ordered shape points.
//returns GeometryError when fewer than two distinct vertices are present
func makeRouteGeometry(shapeId string, shapes []*gtfs.Shape) (*routeGeometry, error) {
	if len(shapes) < 2 {
		return nil, &GeometryError{ShapeId: shapeId, Reason: fmt.Sprintf("%d shape points, need at least 2", len(shapes))}
	}
	geometry := routeGeometry{
		shapeId:             shapeId,
		lats:                make([]float64, 0, len(shapes)),
		lons:                make([]float64, 0, len(shapes)),
		cumulativeDistances: make([]float64, 0, len(shapes)),
	}
	distance := 0.0
	for i, shape := range shapes {
		if i > 0 {
			distance += simpleLatLngDistance(shapes[i-1].ShapePtLat, shapes[i-1].ShapePtLng,
				shape.ShapePtLat, shape.ShapePtLng)
		}
		geometry.lats = append(geometry.lats, shape.ShapePtLat)
		geometry.lons = append(geometry.lons, shape.ShapePtLng)
		geometry.cumulativeDistances = append(geometry.cumulativeDistances, distance)
	}
	if distance <= 0 {
		return nil, &GeometryError{ShapeId: shapeId, Reason: "shape has no length"}
	}
	return &geometry, nil
}

//length returns the total meters along the shape
func (g *routeGeometry) length() float64 {
	return g.cumulativeDistances[len(g.cumulativeDistances)-1]
}

//project finds the point on the shape nearest lat,lon.
//returns meters along the shape to that point and the perpendicular offset from it.
//a polyline has no single nearest segment guarantee for off path points, so every segment is
//evaluated and the smallest offset wins. when priorDistance is zero or greater, segments whose
//offsets are within offsetTieBreakMeters of the best are tie-broken toward the projection
//nearest priorDistance, keeping a trace from snapping backward where a route overlaps itself.
//pass a negative priorDistance when no prior projection exists
func (g *routeGeometry) project(lat float64, lon float64, priorDistance float64) (float64, float64) {
	bestDistance := 0.0
	bestOffset := math.Inf(1)
	for i := 0; i+1 < len(g.lats); i++ {
		segmentLength := g.cumulativeDistances[i+1] - g.cumulativeDistances[i]
		if segmentLength <= 0 {
			//degenerate segment
			continue
		}
		nearLat, nearLon, t := nearestLatLngToLineFromPoint(g.lats[i], g.lons[i],
			g.lats[i+1], g.lons[i+1], lat, lon)
		offset := simpleLatLngDistance(lat, lon, nearLat, nearLon)
		distance := g.cumulativeDistances[i] + segmentLength*t

		if math.IsInf(bestOffset, 1) || offset < bestOffset-offsetTieBreakMeters {
			bestOffset = offset
			bestDistance = distance
			continue
		}
		if offset > bestOffset+offsetTieBreakMeters {
			continue
		}
		//offsets are within the tie band, prefer continuity with the prior projection when
		//one was supplied, otherwise keep the strictly smaller offset
		if priorDistance >= 0 {
			if math.Abs(distance-priorDistance) < math.Abs(bestDistance-priorDistance) {
				bestOffset = offset
				bestDistance = distance
			}
		} else if offset < bestOffset {
			bestOffset = offset
			bestDistance = distance
		}
	}
	return bestDistance, bestOffset
}

//stopDistance is a scheduled stop located along a route geometry
type stopDistance struct {
	stopId       string
	stopSequence uint32
	lat          float64
	lon          float64
	//distance is meters along the route geometry to the stop's projection
	distance float64
}

//stopDistances projects every stop on trip onto the geometry in stop order.
//returns the located stops and a parallel pairMismatch slice with one entry per consecutive
//stop pair, true where the projected distances regress against the trip's stop order. such a
//pair cannot produce a usable link, the stop order and geometry disagree
func (g *routeGeometry) stopDistances(trip *gtfs.TripInstance) ([]stopDistance, []bool) {
	stops := make([]stopDistance, 0, len(trip.StopTimeInstances))
	priorDistance := -1.0
	for _, sti := range trip.StopTimeInstances {
		distance, _ := g.project(sti.StopLat, sti.StopLon, priorDistance)
		stops = append(stops, stopDistance{
			stopId:       sti.StopId,
			stopSequence: sti.StopSequence,
			lat:          sti.StopLat,
			lon:          sti.StopLon,
			distance:     distance,
		})
		priorDistance = distance
	}

	pairMismatch := make([]bool, 0)
	for i := 0; i+1 < len(stops); i++ {
		pairMismatch = append(pairMismatch, stops[i+1].distance < stops[i].distance)
	}
	return stops, pairMismatch
}
