package aggregate

import (
	"math/big"
	"sort"
	"time"

	"tipscope/internal/model"
)

const dayBucket = 15 * time.Minute

// buildSeries buckets events into a chartable time series. Day uses
// 15-minute buckets, every other period uses calendar-day buckets. With
// FillEmpty, every bucket in the window's full range is emitted even when
// it has no events; PeriodAll is data-driven and never filled.
func buildSeries(events []model.Event, p Params, start time.Time, bounded bool) []model.SeriesPoint {
	points := make(map[int64]*model.SeriesPoint)

	for _, ev := range events {
		if ev.Timestamp == 0 {
			// Unresolved times cannot be bucketed.
			continue
		}
		key := bucketStart(time.Unix(int64(ev.Timestamp), 0).In(p.Location), p.Period, p.Location)
		point, ok := points[key]
		if !ok {
			point = &model.SeriesPoint{
				BucketStart: key,
				Totals:      make(map[model.AssetKind]*big.Int),
			}
			points[key] = point
		}
		total, ok := point.Totals[ev.Asset]
		if !ok {
			total = new(big.Int)
			point.Totals[ev.Asset] = total
		}
		total.Add(total, ev.Amount)
		point.EventCount++
	}

	if p.FillEmpty && bounded {
		for _, key := range walkBuckets(p.Period, start, p.Location) {
			if _, ok := points[key]; !ok {
				points[key] = &model.SeriesPoint{
					BucketStart: key,
					Totals:      make(map[model.AssetKind]*big.Int),
				}
			}
		}
	}

	series := make([]model.SeriesPoint, 0, len(points))
	for _, point := range points {
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].BucketStart < series[j].BucketStart
	})
	return series
}

// bucketStart maps a wall-clock time to its bucket's unix start.
func bucketStart(t time.Time, period model.Period, loc *time.Location) int64 {
	if period == model.PeriodDay {
		return t.Truncate(dayBucket).Unix()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).Unix()
}

// walkBuckets enumerates every bucket start in the window's full range:
// 96 quarter-hours for a day, 7 days for a week, the whole calendar month
// for a month.
func walkBuckets(period model.Period, start time.Time, loc *time.Location) []int64 {
	var keys []int64
	switch period {
	case model.PeriodDay:
		end := start.AddDate(0, 0, 1)
		for t := start; t.Before(end); t = t.Add(dayBucket) {
			keys = append(keys, t.Unix())
		}
	case model.PeriodWeek:
		for i := 0; i < 7; i++ {
			keys = append(keys, start.AddDate(0, 0, i).Unix())
		}
	case model.PeriodMonth:
		end := start.AddDate(0, 1, 0)
		for t := start; t.Before(end); t = t.AddDate(0, 0, 1) {
			keys = append(keys, t.Unix())
		}
	}
	return keys
}
