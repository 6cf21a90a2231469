package content

import "time"

// WaitUnit is the unit a waiting time is reported in.
type WaitUnit string

const (
	WaitUnderHour WaitUnit = "under_hour"
	WaitHours     WaitUnit = "hours"
	WaitDays      WaitUnit = "days"
)

// WaitingTime returns how long an item created at created has been waiting.
func WaitingTime(created, now time.Time) (WaitUnit, int) {
	if created.IsZero() || now.Before(created) {
		return WaitUnderHour, 0
	}
	hours := int(now.Sub(created) / time.Hour)
	switch {
	case hours == 0:
		return WaitUnderHour, 0
	case hours < 24:
		return WaitHours, hours
	default:
		return WaitDays, hours / 24
	}
}

// Period buckets the age of the oldest item in a list.
type Period string

const (
	PeriodToday   Period = "today"
	PeriodTwoDays Period = "two_days"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
)

// PeriodOf returns the bucket of the oldest item. Items without a creation
// time are ignored; an empty list is PeriodToday.
func PeriodOf(items []Item, now time.Time) Period {
	var oldest time.Time
	for _, it := range items {
		if it.CreatedAt.IsZero() {
			continue
		}
		if oldest.IsZero() || it.CreatedAt.Before(oldest) {
			oldest = it.CreatedAt
		}
	}
	if oldest.IsZero() {
		return PeriodToday
	}
	switch h := now.Sub(oldest).Hours(); {
	case h < 24:
		return PeriodToday
	case h < 48:
		return PeriodTwoDays
	case h < 168:
		return PeriodWeek
	default:
		return PeriodMonth
	}
}
