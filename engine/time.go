package engine

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar date abstraction (receipts are dated, not timed)
// =============================================================================

// TimePoint is a calendar date in UTC. Receipt timestamps below day
// precision never matter to search, sort, or rollup, so dates normalize
// to midnight UTC and compare as whole days.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func TimePointFrom(t time.Time) TimePoint {
	u := t.UTC()
	return NewTimePoint(u.Year(), u.Month(), u.Day())
}

func Today() TimePoint { return TimePointFrom(time.Now()) }

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return TimePointFrom(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.normalize().After(other.normalize()) }

func (tp TimePoint) Compare(other TimePoint) int {
	switch {
	case tp.Before(other):
		return -1
	case tp.After(other):
		return 1
	default:
		return 0
	}
}

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.normalize().Format("2006-01-02") }

// =============================================================================
// GRANULARITY - Rollup bucket width
// =============================================================================

type Granularity int

const (
	GranularityDaily Granularity = iota
	GranularityWeekly
	GranularityMonthly
)

func (g Granularity) String() string {
	switch g {
	case GranularityDaily:
		return "daily"
	case GranularityWeekly:
		return "weekly"
	case GranularityMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ParseGranularity maps the wire form to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "daily":
		return GranularityDaily, nil
	case "weekly":
		return GranularityWeekly, nil
	case "monthly":
		return GranularityMonthly, nil
	default:
		return 0, &InvalidSpecError{Reason: "granularity must be daily, weekly, or monthly"}
	}
}

// Truncate maps a date to the start of its bucket: the date itself for
// daily, the Monday of its week for weekly, the first of its month for
// monthly. Dates that truncate equal belong to the same bucket.
func (tp TimePoint) Truncate(g Granularity) TimePoint {
	switch g {
	case GranularityWeekly:
		offset := (int(tp.Weekday()) + 6) % 7 // Monday start
		return tp.AddDays(-offset)
	case GranularityMonthly:
		return NewTimePoint(tp.Year(), tp.Month(), 1)
	default:
		return TimePoint{Time: tp.normalize()}
	}
}

// Label renders a bucket key: YYYY-MM-DD for daily and weekly buckets,
// YYYY-MM for monthly.
func (tp TimePoint) Label(g Granularity) string {
	if g == GranularityMonthly {
		return tp.normalize().Format("2006-01")
	}
	return tp.Truncate(g).String()
}
