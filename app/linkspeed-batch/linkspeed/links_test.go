package linkspeed

import (
	"testing"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

func interpolatedCrossings(stops []stopDistance, seconds ...float64) []stopCrossing {
	crossings := make([]stopCrossing, 0, len(stops))
	for i, stop := range stops {
		crossings = append(crossings, stopCrossing{
			stopId:       stop.stopId,
			stopSequence: stop.stopSequence,
			distance:     stop.distance,
			seconds:      seconds[i],
			confidence:   crossingInterpolated,
		})
	}
	return crossings
}

func Test_buildLinks(t *testing.T) {
	trip := makeTestTrip("trip1", 2000, 0, 500, 1200)

	t.Run("consecutive crossings become valid links", func(t *testing.T) {
		stops := makeTestStops(0, 500, 1200)
		crossings := interpolatedCrossings(stops, 0, 50, 140)

		links := buildLinks(trip, "veh1", stops, []bool{false, false}, crossings, testConf())
		if len(links) != 2 {
			t.Fatalf("buildLinks() returned %d links, want 2", len(links))
		}

		first := links[0]
		if first.LinkId != "stop1-stop2" || first.FromStopId != "stop1" || first.ToStopId != "stop2" {
			t.Errorf("first link identifies %s from %s to %s", first.LinkId, first.FromStopId, first.ToStopId)
		}
		if first.Validity != gtfs.LinkValid {
			t.Errorf("first link validity = %s, want %s", first.Validity, gtfs.LinkValid)
		}
		if !closeEnough(first.DurationSeconds, 50, 0.001) {
			t.Errorf("first link duration = %v, want 50", first.DurationSeconds)
		}
		if !closeEnough(first.SpeedMetersPerSecond, 10, 0.001) {
			t.Errorf("first link speed = %v, want 10", first.SpeedMetersPerSecond)
		}
		if first.DistanceSource != gtfs.DistanceFromShape {
			t.Errorf("first link distance source = %s, want %s", first.DistanceSource, gtfs.DistanceFromShape)
		}

		second := links[1]
		if second.Validity != gtfs.LinkValid {
			t.Errorf("second link validity = %s, want %s", second.Validity, gtfs.LinkValid)
		}
		if !closeEnough(second.DurationSeconds, 90, 0.001) {
			t.Errorf("second link duration = %v, want 90", second.DurationSeconds)
		}
		if !closeEnough(second.SpeedMetersPerSecond, 700.0/90.0, 0.001) {
			t.Errorf("second link speed = %v, want %v", second.SpeedMetersPerSecond, 700.0/90.0)
		}
		if second.TripId != "trip1" || second.RouteId != "100" || second.VehicleId != "veh1" {
			t.Errorf("second link carries trip %s route %s vehicle %s", second.TripId, second.RouteId, second.VehicleId)
		}
	})

	t.Run("missing crossing makes both adjacent links no data", func(t *testing.T) {
		stops := makeTestStops(0, 500, 1200)
		crossings := interpolatedCrossings(stops, 0, 50, 140)
		crossings[1].confidence = crossingMissing
		crossings[1].reason = afterTraceEnd
		crossings[1].seconds = 0

		links := buildLinks(trip, "veh1", stops, []bool{false, false}, crossings, testConf())
		for i, link := range links {
			if link.Validity != gtfs.LinkNoData {
				t.Errorf("link %d validity = %s, want %s", i, link.Validity, gtfs.LinkNoData)
			}
			if link.SpeedMetersPerSecond != 0 {
				t.Errorf("link %d speed = %v, want 0", i, link.SpeedMetersPerSecond)
			}
		}
	})

	t.Run("pair mismatch outranks other validity rules", func(t *testing.T) {
		stops := makeTestStops(0, 500, 1200)
		crossings := interpolatedCrossings(stops, 0, 50, 140)

		links := buildLinks(trip, "veh1", stops, []bool{true, false}, crossings, testConf())
		if links[0].Validity != gtfs.LinkGeometryMismatch {
			t.Errorf("first link validity = %s, want %s", links[0].Validity, gtfs.LinkGeometryMismatch)
		}
		if links[1].Validity != gtfs.LinkValid {
			t.Errorf("second link validity = %s, want %s", links[1].Validity, gtfs.LinkValid)
		}
	})

	t.Run("equal crossing times produce a non positive duration", func(t *testing.T) {
		stops := makeTestStops(0, 500)
		crossings := interpolatedCrossings(stops, 50, 50)

		links := buildLinks(trip, "veh1", stops, []bool{false}, crossings, testConf())
		if links[0].Validity != gtfs.LinkNonPositiveDuration {
			t.Errorf("link validity = %s, want %s", links[0].Validity, gtfs.LinkNonPositiveDuration)
		}
	})

	t.Run("speed outside the plausible range is flagged", func(t *testing.T) {
		stops := makeTestStops(0, 500)
		crossings := interpolatedCrossings(stops, 0, 5)

		links := buildLinks(trip, "veh1", stops, []bool{false}, crossings, testConf())
		if links[0].Validity != gtfs.LinkImplausibleSpeed {
			t.Errorf("link validity = %s, want %s", links[0].Validity, gtfs.LinkImplausibleSpeed)
		}
		if !closeEnough(links[0].SpeedMetersPerSecond, 100, 0.001) {
			t.Errorf("link speed = %v, want 100", links[0].SpeedMetersPerSecond)
		}
	})

	t.Run("stops projected to the same shape point fall back to direct distance", func(t *testing.T) {
		stops := []stopDistance{
			{stopId: "stop1", stopSequence: 1, lat: latForMeters(500), lon: 0, distance: 500},
			{stopId: "stop2", stopSequence: 2, lat: latForMeters(500), lon: lonForMeters(40), distance: 500},
		}
		crossings := interpolatedCrossings(stops, 0, 10)

		links := buildLinks(trip, "veh1", stops, []bool{false}, crossings, testConf())
		if links[0].DistanceSource != gtfs.DistanceDirect {
			t.Errorf("link distance source = %s, want %s", links[0].DistanceSource, gtfs.DistanceDirect)
		}
		if !closeEnough(links[0].DistanceMeters, 40, 1) {
			t.Errorf("link distance = %v, want about 40", links[0].DistanceMeters)
		}
	})
}

func Test_unixFloatTime(t *testing.T) {
	at := unixFloatTime(100.5)
	if at.Unix() != 100 {
		t.Errorf("unixFloatTime(100.5).Unix() = %d, want 100", at.Unix())
	}
	if at.Nanosecond() != 500000000 {
		t.Errorf("unixFloatTime(100.5).Nanosecond() = %d, want 500000000", at.Nanosecond())
	}
}
