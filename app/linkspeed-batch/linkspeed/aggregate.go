package linkspeed

import (
	"math"
	"sort"
	"time"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
)

//BucketingRule maps a link traversal's start time to a time-of-day bucket and a DayType.
//serviceDate is the 12am service date of the trip the traversal belongs to
type BucketingRule func(serviceDate time.Time, linkStart time.Time) (int, DayType)

//makeHourlyBucketingRule returns the default rule: one bucket per hour of the service day,
//day types from the holiday calendar. buckets past 23 are hours beyond midnight on the
//following day, matching gtfs schedule times
func makeHourlyBucketingRule() BucketingRule {
	dayTypes := makeDayTypeCalendar()
	return func(serviceDate time.Time, linkStart time.Time) (int, DayType) {
		return gtfs.ServiceDaySeconds(serviceDate, linkStart) / 3600, dayTypes.dayType(serviceDate)
	}
}

//summaryKey identifies one aggregation group
type summaryKey struct {
	routeId     string
	directionId int
	linkId      string
	dayType     DayType
	timeBucket  int
}

//summaryGroup collects the valid speeds observed for one summaryKey
type summaryGroup struct {
	dataSetId  int64
	fromStopId string
	toStopId   string
	speeds     []float64
}

//aggregateLinks folds valid link records into one gtfs.LinkSpeedSummary per route, direction,
//link, time bucket and day type. speeds outside conf.OutlierTrimFactor times the interquartile
//range beyond the quartiles are trimmed before statistics are computed. groups left with fewer
//than conf.MinSampleCount speeds are emitted flagged low confidence rather than suppressed.
//output order is deterministic regardless of input order
func aggregateLinks(records []*gtfs.LinkRecord, conf *Conf, rule BucketingRule) []*gtfs.LinkSpeedSummary {
	groups := make(map[summaryKey]*summaryGroup)
	for _, record := range records {
		if !record.IsValid() {
			continue
		}
		timeBucket, dayType := rule(record.ServiceDate, record.StartTime)
		key := summaryKey{
			routeId:     record.RouteId,
			directionId: record.DirectionId,
			linkId:      record.LinkId,
			dayType:     dayType,
			timeBucket:  timeBucket,
		}
		group, present := groups[key]
		if !present {
			group = &summaryGroup{
				dataSetId:  record.DataSetId,
				fromStopId: record.FromStopId,
				toStopId:   record.ToStopId,
			}
			groups[key] = group
		}
		group.speeds = append(group.speeds, record.SpeedMetersPerSecond)
	}

	keys := make([]summaryKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.routeId != b.routeId {
			return a.routeId < b.routeId
		}
		if a.directionId != b.directionId {
			return a.directionId < b.directionId
		}
		if a.linkId != b.linkId {
			return a.linkId < b.linkId
		}
		if a.dayType != b.dayType {
			return a.dayType < b.dayType
		}
		return a.timeBucket < b.timeBucket
	})

	results := make([]*gtfs.LinkSpeedSummary, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		sort.Float64s(group.speeds)
		kept, trimmed := trimOutliers(group.speeds, conf.OutlierTrimFactor)

		summary := &gtfs.LinkSpeedSummary{
			DataSetId:     group.dataSetId,
			RouteId:       key.routeId,
			DirectionId:   key.directionId,
			LinkId:        key.linkId,
			FromStopId:    group.fromStopId,
			ToStopId:      group.toStopId,
			TimeBucket:    key.timeBucket,
			DayType:       string(key.dayType),
			SampleCount:   len(kept),
			TrimmedCount:  trimmed,
			MedianSpeed:   percentile(kept, 0.5),
			P25Speed:      percentile(kept, 0.25),
			P75Speed:      percentile(kept, 0.75),
			MeanSpeed:     mean(kept),
			MinSpeed:      kept[0],
			MaxSpeed:      kept[len(kept)-1],
			LowConfidence: len(kept) < conf.MinSampleCount,
		}
		results = append(results, summary)
	}
	return results
}

//trimOutliers removes values outside factor times the interquartile range beyond the
//quartiles. values must be sorted ascending. groups too small to estimate quartiles are
//returned untouched.
//returns the kept values, still sorted, and the number trimmed
func trimOutliers(sorted []float64, factor float64) ([]float64, int) {
	if factor <= 0 || len(sorted) < 4 {
		return sorted, 0
	}
	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	low := q1 - factor*iqr
	high := q3 + factor*iqr

	kept := make([]float64, 0, len(sorted))
	for _, value := range sorted {
		if value >= low && value <= high {
			kept = append(kept, value)
		}
	}
	return kept, len(sorted) - len(kept)
}

//percentile returns the pth percentile of sorted values with linear interpolation between ranks
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (rank-float64(lower))*(sorted[upper]-sorted[lower])
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}
