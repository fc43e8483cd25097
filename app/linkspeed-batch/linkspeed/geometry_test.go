package linkspeed

import (
	"testing"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

func Test_makeRouteGeometry(t *testing.T) {
	tests := []struct {
		name      string
		shapes    []*gtfs.Shape
		wantError bool
	}{
		{
			name:      "two points make a usable geometry",
			shapes:    makeTestShapes("shape1", 0, 1000),
			wantError: false,
		},
		{
			name:      "single point is rejected",
			shapes:    makeTestShapes("shape1", 0),
			wantError: true,
		},
		{
			name:      "no points are rejected",
			shapes:    nil,
			wantError: true,
		},
		{
			name:      "coincident points have no length",
			shapes:    makeTestShapes("shape1", 500, 500),
			wantError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geometry, err := makeRouteGeometry("shape1", tt.shapes)
			if tt.wantError {
				if err == nil {
					t.Errorf("makeRouteGeometry() expected error, got geometry %+v", geometry)
					return
				}
				if _, ok := err.(*GeometryError); !ok {
					t.Errorf("makeRouteGeometry() expected GeometryError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Errorf("makeRouteGeometry() unexpected error %v", err)
				return
			}
			if !closeEnough(geometry.length(), 1000, 0.5) {
				t.Errorf("geometry.length() = %v, want about 1000", geometry.length())
			}
		})
	}
}

func Test_routeGeometry_project(t *testing.T) {
	geometry := makeTestGeometry(2000)

	tests := []struct {
		name          string
		lat           float64
		lon           float64
		priorDistance float64
		wantDistance  float64
		wantOffset    float64
		tolerance     float64
	}{
		{
			name:          "point on the line",
			lat:           latForMeters(500),
			lon:           0,
			priorDistance: -1,
			wantDistance:  500,
			wantOffset:    0,
			tolerance:     1,
		},
		{
			name:          "point beside the line keeps its along route distance",
			lat:           latForMeters(1200),
			lon:           lonForMeters(50),
			priorDistance: -1,
			wantDistance:  1200,
			wantOffset:    50,
			tolerance:     1,
		},
		{
			name:          "point before the start clamps to the first vertex",
			lat:           latForMeters(-100),
			lon:           0,
			priorDistance: -1,
			wantDistance:  0,
			wantOffset:    100,
			tolerance:     1,
		},
		{
			name:          "point past the end clamps to the last vertex",
			lat:           latForMeters(2100),
			lon:           0,
			priorDistance: -1,
			wantDistance:  2000,
			wantOffset:    100,
			tolerance:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			distance, offset := geometry.project(tt.lat, tt.lon, tt.priorDistance)
			if !closeEnough(distance, tt.wantDistance, tt.tolerance) {
				t.Errorf("project() distance = %v, want %v", distance, tt.wantDistance)
			}
			if !closeEnough(offset, tt.wantOffset, tt.tolerance) {
				t.Errorf("project() offset = %v, want %v", offset, tt.wantOffset)
			}
		})
	}
}

//a route that doubles back over itself produces two segments with nearly identical offsets.
//continuity with the prior projection should keep the trace on the outbound half until it
//has actually turned around
func Test_routeGeometry_project_overlappingRoute(t *testing.T) {
	//out 2000 meters and straight back
	shapes := makeTestShapes("shape1", 0, 2000, 0)
	geometry, err := makeRouteGeometry("shape1", shapes)
	if err != nil {
		t.Fatalf("makeRouteGeometry() unexpected error %v", err)
	}

	//a vehicle early in the outbound half
	distance, _ := geometry.project(latForMeters(300), 0, 250)
	if !closeEnough(distance, 300, 1) {
		t.Errorf("project() outbound distance = %v, want about 300", distance)
	}

	//the same location on the way back
	distance, _ = geometry.project(latForMeters(300), 0, 3600)
	if !closeEnough(distance, 3700, 1) {
		t.Errorf("project() inbound distance = %v, want about 3700", distance)
	}
}

func Test_routeGeometry_stopDistances(t *testing.T) {
	geometry := makeTestGeometry(2000)

	t.Run("stops in travel order produce increasing distances", func(t *testing.T) {
		trip := makeTestTrip("trip1", 2000, 0, 500, 1200)
		stops, pairMismatch := geometry.stopDistances(trip)
		if len(stops) != 3 || len(pairMismatch) != 2 {
			t.Fatalf("stopDistances() returned %d stops and %d pairs, want 3 and 2", len(stops), len(pairMismatch))
		}
		wantDistances := []float64{0, 500, 1200}
		for i, stop := range stops {
			if !closeEnough(stop.distance, wantDistances[i], 1) {
				t.Errorf("stop %s distance = %v, want %v", stop.stopId, stop.distance, wantDistances[i])
			}
		}
		for i, mismatch := range pairMismatch {
			if mismatch {
				t.Errorf("pairMismatch[%d] = true, want false", i)
			}
		}
	})

	t.Run("stop order that regresses against the geometry is flagged", func(t *testing.T) {
		trip := makeTestTrip("trip1", 2000, 0, 1200, 500)
		_, pairMismatch := geometry.stopDistances(trip)
		if pairMismatch[0] {
			t.Errorf("pairMismatch[0] = true, want false")
		}
		if !pairMismatch[1] {
			t.Errorf("pairMismatch[1] = false, want true")
		}
	})
}
