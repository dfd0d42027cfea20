package sessions

import (
	"math"
	"time"

	"github.com/edumentor/mentor-history/pkg/models"
)

// BucketFor classifies a timestamp into a display bucket relative to now.
// Comparison is by calendar day in now's location, not elapsed hours: a
// message from 23:59 yesterday is "Yesterday" even at 00:05 today. A zero
// timestamp (malformed input) lands in Older.
//
// withThisMonth enables the fifth bucket between "Last 7 days" and "Older";
// some deployments of the web sidebar ship it, so it is configuration here.
func BucketFor(ts, now time.Time, withThisMonth bool) models.DateBucket {
	if ts.IsZero() {
		return models.BucketOlder
	}
	ts = ts.In(now.Location())
	days := calendarDaysBetween(ts, now)
	switch {
	case days <= 0:
		return models.BucketToday
	case days == 1:
		return models.BucketYesterday
	case days <= 7:
		return models.BucketLastSevenDays
	}
	if withThisMonth && ts.Year() == now.Year() && ts.Month() == now.Month() {
		return models.BucketThisMonth
	}
	return models.BucketOlder
}

// calendarDaysBetween counts whole calendar days from ts up to now, both
// truncated to midnight in their own location. Rounding absorbs DST days
// that are 23 or 25 hours long.
func calendarDaysBetween(ts, now time.Time) int {
	return int(math.Round(startOfDay(now).Sub(startOfDay(ts)).Hours() / 24))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BucketGroup is one rendered section of the history list: a date header and
// the sessions under it, preserving the newest-first session order.
type BucketGroup struct {
	Bucket   models.DateBucket
	Sessions []models.Session
}

// GroupByBucket splits an already-ordered session list into display groups.
// Buckets appear in fixed order (Today first) and empty buckets are omitted.
func GroupByBucket(list []models.Session, now time.Time, withThisMonth bool) []BucketGroup {
	byBucket := make(map[models.DateBucket][]models.Session)
	for _, s := range list {
		b := BucketFor(s.Timestamp, now, withThisMonth)
		byBucket[b] = append(byBucket[b], s)
	}

	order := []models.DateBucket{
		models.BucketToday,
		models.BucketYesterday,
		models.BucketLastSevenDays,
		models.BucketThisMonth,
		models.BucketOlder,
	}
	var out []BucketGroup
	for _, b := range order {
		if group, ok := byBucket[b]; ok {
			out = append(out, BucketGroup{Bucket: b, Sessions: group})
		}
	}
	return out
}
