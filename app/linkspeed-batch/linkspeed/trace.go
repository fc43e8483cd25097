package linkspeed

import (
	"sort"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

//positionFix is a single timestamped report of a vehicle's location
type positionFix struct {
	//timestamp is unix epoch seconds the position was reported at
	timestamp int64
	latitude  float64
	longitude float64
}

//projectedFix is a positionFix located along one specific route geometry.
//distance and offset are only meaningful relative to the geometry it was projected against
type projectedFix struct {
	positionFix
	//distance is meters along the route geometry
	distance float64
	//offset is meters perpendicular from the geometry
	offset float64
}

//traceDropStats counts fixes removed by each cleaning rule, kept for batch diagnostics
type traceDropStats struct {
	duplicateTimestamp int
	nonMonotonicTime   int
	offRoute           int
	gpsJump            int
	backward           int
	stationary         int
}

func (t traceDropStats) total() int {
	return t.duplicateTimestamp + t.nonMonotonicTime + t.offRoute + t.gpsJump + t.backward + t.stationary
}

//cleanTrace filters and repairs one trip instance's raw position reports and projects the
//survivors onto geometry. Rules are applied in order: near duplicate timestamps are dropped
//keeping the first report, remaining fixes are sorted by time, then a single forward pass
//rejects off route fixes, gps jumps and backward teleports. fixes that regress within
//backward tolerance are treated as dwell at one location, which fix of the dwell survives is
//chosen by conf.DwellPolicy.
//the returned fixes are strictly increasing in both timestamp and distance
func cleanTrace(rawPositions []*gtfs.VehiclePosition, geometry *routeGeometry, conf *Conf) ([]projectedFix, traceDropStats) {
	stats := traceDropStats{}

	//drop near duplicate timestamps in arrival order, keeping the first report
	fixes := make([]positionFix, 0, len(rawPositions))
	seenTimestamps := make(map[int64]bool)
	for _, raw := range rawPositions {
		duplicate := false
		for delta := int64(0); delta <= int64(conf.TimeEpsilonSeconds); delta++ {
			if seenTimestamps[raw.Timestamp-delta] || seenTimestamps[raw.Timestamp+delta] {
				duplicate = true
				break
			}
		}
		if duplicate {
			stats.duplicateTimestamp++
			continue
		}
		seenTimestamps[raw.Timestamp] = true
		fixes = append(fixes, positionFix{
			timestamp: raw.Timestamp,
			latitude:  raw.Latitude,
			longitude: raw.Longitude,
		})
	}

	sort.SliceStable(fixes, func(i, j int) bool {
		return fixes[i].timestamp < fixes[j].timestamp
	})

	retained := make([]projectedFix, 0, len(fixes))
	priorDistance := -1.0
	for _, fix := range fixes {
		if len(retained) > 0 && fix.timestamp <= retained[len(retained)-1].timestamp {
			stats.nonMonotonicTime++
			continue
		}

		distance, offset := geometry.project(fix.latitude, fix.longitude, priorDistance)
		if offset > conf.MaxCorridorOffsetMeters {
			stats.offRoute++
			continue
		}

		if len(retained) > 0 {
			last := retained[len(retained)-1]
			elapsed := float64(fix.timestamp - last.timestamp)

			if distance <= last.distance {
				regress := last.distance - distance
				if regress > conf.BackwardToleranceMeters {
					//teleported backward
					stats.backward++
					continue
				}
				//vehicle is dwelling at one location, gps jitter moves it slightly backward.
				//keep the first report of the dwell or slide the retained fix's time forward
				//to the last report, depending on policy
				if conf.DwellPolicy == DwellAtDeparture {
					retained[len(retained)-1].timestamp = fix.timestamp
				}
				stats.stationary++
				continue
			}

			impliedSpeed := (distance - last.distance) / elapsed
			if impliedSpeed > conf.MaxPlausibleSpeed {
				stats.gpsJump++
				continue
			}
		}

		retained = append(retained, projectedFix{
			positionFix: fix,
			distance:    distance,
			offset:      offset,
		})
		priorDistance = distance
	}

	return retained, stats
}
