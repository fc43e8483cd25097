package linkspeed

import (
	"sort"
)

//crossingConfidence describes how a stop crossing time was estimated
type crossingConfidence int

const (
	//crossingInterpolated means the stop's distance was bracketed by two trace fixes
	crossingInterpolated crossingConfidence = iota
	//crossingExtrapolated means the stop's distance fell outside the trace but within the
	//configured margin of its first or last fix
	crossingExtrapolated
	//crossingMissing means no reliable estimate could be made, see crossingMissReason
	crossingMissing
)

func (c crossingConfidence) String() string {
	switch c {
	case crossingInterpolated:
		return "interpolated"
	case crossingExtrapolated:
		return "extrapolated"
	}
	return "missing"
}

//crossingMissReason explains a missing crossing estimate
type crossingMissReason int

const (
	crossingOK crossingMissReason = iota
	//beforeTraceStart means the stop's distance is before the trace's first fix by more than the margin
	beforeTraceStart
	//afterTraceEnd means the stop's distance is past the trace's last fix by more than the margin
	afterTraceEnd
	//nonMonotonicCrossing means this stop's estimate was not later than the previous stop's,
	//both estimates are discarded rather than accepting an implied negative duration
	nonMonotonicCrossing
	//insufficientTrace means the trace has fewer than two fixes, too few to place any stop in time
	insufficientTrace
)

func (r crossingMissReason) String() string {
	switch r {
	case beforeTraceStart:
		return "before_trace_start"
	case afterTraceEnd:
		return "after_trace_end"
	case nonMonotonicCrossing:
		return "non_monotonic_crossing"
	case insufficientTrace:
		return "insufficient_trace"
	}
	return "ok"
}

//stopCrossing is the estimated moment a vehicle's along route position reached a stop's position
type stopCrossing struct {
	stopId       string
	stopSequence uint32
	distance     float64
	//seconds is fractional unix epoch seconds of the estimate, zero when confidence is crossingMissing
	seconds    float64
	confidence crossingConfidence
	reason     crossingMissReason
}

//estimateCrossings estimates the crossing time of every stop in stops, in stop order, from a
//cleaned trace. fixes must be strictly increasing in timestamp and distance as produced by
//cleanTrace. crossing times for stops the trace never reached are marked missing, and any
//pair of consecutive estimates that fails to move forward in time is discarded as corrupt
func estimateCrossings(fixes []projectedFix, stops []stopDistance, conf *Conf) []stopCrossing {
	results := make([]stopCrossing, 0, len(stops))
	for _, stop := range stops {
		crossing := stopCrossing{
			stopId:       stop.stopId,
			stopSequence: stop.stopSequence,
			distance:     stop.distance,
			confidence:   crossingMissing,
		}
		if len(fixes) >= 2 {
			estimateCrossing(&crossing, fixes, conf)
		} else {
			crossing.reason = insufficientTrace
		}
		results = append(results, crossing)
	}

	//crossing times must move forward with stop order. when one doesn't, there is no way to
	//tell which of the pair is corrupt, so both are discarded
	for i := 1; i < len(results); i++ {
		if results[i].confidence == crossingMissing || results[i-1].confidence == crossingMissing {
			continue
		}
		if results[i].seconds <= results[i-1].seconds {
			for _, crossing := range []*stopCrossing{&results[i-1], &results[i]} {
				crossing.confidence = crossingMissing
				crossing.reason = nonMonotonicCrossing
				crossing.seconds = 0
			}
		}
	}
	return results
}

//estimateCrossing fills in crossing for a single stop's target distance
func estimateCrossing(crossing *stopCrossing, fixes []projectedFix, conf *Conf) {
	target := crossing.distance
	first := fixes[0]
	last := fixes[len(fixes)-1]

	if target < first.distance {
		if first.distance-target <= conf.ExtrapolationMarginMeters {
			//extrapolate backward at the speed of the trace's first movement
			second := fixes[1]
			speed := (second.distance - first.distance) / float64(second.timestamp-first.timestamp)
			crossing.seconds = float64(first.timestamp) - (first.distance-target)/speed
			crossing.confidence = crossingExtrapolated
			return
		}
		crossing.reason = beforeTraceStart
		return
	}

	if target > last.distance {
		if target-last.distance <= conf.ExtrapolationMarginMeters {
			secondToLast := fixes[len(fixes)-2]
			speed := (last.distance - secondToLast.distance) / float64(last.timestamp-secondToLast.timestamp)
			crossing.seconds = float64(last.timestamp) + (target-last.distance)/speed
			crossing.confidence = crossingExtrapolated
			return
		}
		crossing.reason = afterTraceEnd
		return
	}

	//find the first fix at or past the target
	after := sort.Search(len(fixes), func(i int) bool {
		return fixes[i].distance >= target
	})
	if fixes[after].distance == target {
		//the earliest fix exactly at the target, cleaning keeps one fix per distance so this
		//is the first moment the vehicle reached it
		crossing.seconds = float64(fixes[after].timestamp)
		crossing.confidence = crossingInterpolated
		return
	}

	before := after - 1
	ratio := (target - fixes[before].distance) / (fixes[after].distance - fixes[before].distance)
	crossing.seconds = float64(fixes[before].timestamp) +
		ratio*float64(fixes[after].timestamp-fixes[before].timestamp)
	crossing.confidence = crossingInterpolated
}
