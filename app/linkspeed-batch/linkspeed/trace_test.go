package linkspeed

import (
	"testing"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

func Test_cleanTrace(t *testing.T) {
	geometry := makeTestGeometry(2000)

	tests := []struct {
		name          string
		rawPositions  []*gtfs.VehiclePosition
		wantRetained  int
		wantDropStats traceDropStats
	}{
		{
			name: "well behaved trace is untouched",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 100, 0),
				makeTestPosition("trip1", "veh1", 110, 100),
				makeTestPosition("trip1", "veh1", 120, 200),
			},
			wantRetained: 3,
		},
		{
			name: "near duplicate timestamps keep the first report seen",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 100, 0),
				makeTestPosition("trip1", "veh1", 101, 500),
				makeTestPosition("trip1", "veh1", 110, 100),
			},
			wantRetained:  2,
			wantDropStats: traceDropStats{duplicateTimestamp: 1},
		},
		{
			name: "reports arriving out of order are sorted by timestamp",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 120, 200),
				makeTestPosition("trip1", "veh1", 100, 0),
				makeTestPosition("trip1", "veh1", 110, 100),
			},
			wantRetained: 3,
		},
		{
			name: "fix outside the corridor is dropped",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 100, 0),
				{DataSetId: 1, TripId: "trip1", VehicleId: "veh1", Timestamp: 110,
					Latitude: latForMeters(100), Longitude: lonForMeters(250)},
				makeTestPosition("trip1", "veh1", 120, 200),
			},
			wantRetained:  2,
			wantDropStats: traceDropStats{offRoute: 1},
		},
		{
			name: "gps jump faster than any vehicle is dropped",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 100, 0),
				makeTestPosition("trip1", "veh1", 110, 100),
				makeTestPosition("trip1", "veh1", 120, 1900),
			},
			wantRetained:  2,
			wantDropStats: traceDropStats{gpsJump: 1},
		},
		{
			name: "backward teleport is dropped",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 100, 0),
				makeTestPosition("trip1", "veh1", 120, 500),
				makeTestPosition("trip1", "veh1", 130, 300),
				makeTestPosition("trip1", "veh1", 140, 600),
			},
			wantRetained:  3,
			wantDropStats: traceDropStats{backward: 1},
		},
		{
			name: "dwell jitter within backward tolerance is folded into one fix",
			rawPositions: []*gtfs.VehiclePosition{
				makeTestPosition("trip1", "veh1", 100, 0),
				makeTestPosition("trip1", "veh1", 120, 500),
				makeTestPosition("trip1", "veh1", 130, 495),
				makeTestPosition("trip1", "veh1", 140, 500),
				makeTestPosition("trip1", "veh1", 150, 600),
			},
			wantRetained:  3,
			wantDropStats: traceDropStats{stationary: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixes, stats := cleanTrace(tt.rawPositions, geometry, testConf())
			if len(fixes) != tt.wantRetained {
				t.Errorf("cleanTrace() retained %d fixes, want %d", len(fixes), tt.wantRetained)
			}
			if stats != tt.wantDropStats {
				t.Errorf("cleanTrace() drop stats = %+v, want %+v", stats, tt.wantDropStats)
			}
			for i := 1; i < len(fixes); i++ {
				if fixes[i].timestamp <= fixes[i-1].timestamp {
					t.Errorf("fix %d timestamp %d not after %d", i, fixes[i].timestamp, fixes[i-1].timestamp)
				}
				if fixes[i].distance <= fixes[i-1].distance {
					t.Errorf("fix %d distance %v not past %v", i, fixes[i].distance, fixes[i-1].distance)
				}
			}
		})
	}
}

func Test_cleanTrace_dwellPolicy(t *testing.T) {
	geometry := makeTestGeometry(2000)
	rawPositions := []*gtfs.VehiclePosition{
		makeTestPosition("trip1", "veh1", 100, 0),
		makeTestPosition("trip1", "veh1", 120, 500),
		makeTestPosition("trip1", "veh1", 140, 500),
		makeTestPosition("trip1", "veh1", 150, 600),
	}

	t.Run("dwell at arrival keeps the first report of the dwell", func(t *testing.T) {
		conf := testConf()
		conf.DwellPolicy = DwellAtArrival
		fixes, _ := cleanTrace(rawPositions, geometry, conf)
		if len(fixes) != 3 {
			t.Fatalf("cleanTrace() retained %d fixes, want 3", len(fixes))
		}
		if fixes[1].timestamp != 120 {
			t.Errorf("dwell fix timestamp = %d, want 120", fixes[1].timestamp)
		}
	})

	t.Run("dwell at departure slides the fix to the last report of the dwell", func(t *testing.T) {
		conf := testConf()
		conf.DwellPolicy = DwellAtDeparture
		fixes, stats := cleanTrace(rawPositions, geometry, conf)
		if len(fixes) != 3 {
			t.Fatalf("cleanTrace() retained %d fixes, want 3", len(fixes))
		}
		if fixes[1].timestamp != 140 {
			t.Errorf("dwell fix timestamp = %d, want 140", fixes[1].timestamp)
		}
		want := traceDropStats{stationary: 1}
		if stats != want {
			t.Errorf("cleanTrace() drop stats = %+v, want %+v", stats, want)
		}
	})
}

func Test_cleanTrace_degenerateTraces(t *testing.T) {
	geometry := makeTestGeometry(2000)

	t.Run("empty trace", func(t *testing.T) {
		fixes, stats := cleanTrace(nil, geometry, testConf())
		if len(fixes) != 0 || stats.total() != 0 {
			t.Errorf("cleanTrace() = %d fixes, %d drops, want none", len(fixes), stats.total())
		}
	})

	t.Run("every fix off route", func(t *testing.T) {
		rawPositions := []*gtfs.VehiclePosition{
			{DataSetId: 1, TripId: "trip1", VehicleId: "veh1", Timestamp: 100,
				Latitude: latForMeters(100), Longitude: lonForMeters(500)},
			{DataSetId: 1, TripId: "trip1", VehicleId: "veh1", Timestamp: 110,
				Latitude: latForMeters(200), Longitude: lonForMeters(500)},
		}
		fixes, stats := cleanTrace(rawPositions, geometry, testConf())
		if len(fixes) != 0 {
			t.Errorf("cleanTrace() retained %d fixes, want 0", len(fixes))
		}
		if stats.offRoute != 2 {
			t.Errorf("cleanTrace() offRoute = %d, want 2", stats.offRoute)
		}
	})
}
