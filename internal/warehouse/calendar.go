package warehouse

import (
	"time"

	"sparkify/internal/schema"
)

// Calendar is the decomposition of one event timestamp.
type Calendar struct {
	StartTime string
	Hour      int64
	Day       int64
	Week      int64
	Month     int64
	Year      int64
	Weekday   string
}

// Decompose maps an epoch-millisecond timestamp onto calendar attributes in
// loc. A nil loc means UTC. Sub-second precision is dropped from StartTime.
//
// Week follows strftime %W: weeks start on Monday and the days of a year
// before its first Monday are in week 0.
func Decompose(tsMillis int64, loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(tsMillis).In(loc)
	return Calendar{
		StartTime: t.Format(schema.TimestampLayout),
		Hour:      int64(t.Hour()),
		Day:       int64(t.Day()),
		Week:      mondayWeek(t),
		Month:     int64(t.Month()),
		Year:      int64(t.Year()),
		Weekday:   t.Weekday().String(),
	}
}

func mondayWeek(t time.Time) int64 {
	yday := t.YearDay() - 1
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	return int64((yday + 7 - daysSinceMonday) / 7)
}
