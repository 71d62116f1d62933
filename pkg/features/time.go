package features

import "time"

// TimeComponents holds the calendar fields derived from a game's creation time
type TimeComponents struct {
	Month     int // 1-12
	DayOfWeek int // 0-6, Monday is 0
	Hour      int // 0-23
}

// DeriveTimeComponents converts an epoch-millisecond timestamp into calendar
// components. Timestamps are interpreted in UTC.
func DeriveTimeComponents(ms int64) TimeComponents {
	t := time.UnixMilli(ms).UTC()
	return TimeComponents{
		Month:     int(t.Month()),
		DayOfWeek: (int(t.Weekday()) + 6) % 7,
		Hour:      t.Hour(),
	}
}
