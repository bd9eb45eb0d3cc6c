// Package period maps a habit's completion frequency to the boundaries of
// its current completion period. A habit with a completion at or after
// Start(frequency, now) is considered satisfied and is excluded from the
// due-reminder set.
package period

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/Joniyal/tudum/internal/models"
)

// Anchor predates any real data so every rule has occurrences before "now".
// 2000-01-03 is a Monday, which keeps the weekly anchor aligned with BYDAY.
var (
	dailyAnchor   = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	weeklyAnchor  = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)
	monthlyAnchor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Start returns the UTC start of the current completion period: midnight for
// daily habits, Monday midnight for weekly, the first of the month for
// monthly. Unknown frequencies fall back to daily.
func Start(frequency string, now time.Time) time.Time {
	now = now.UTC()

	var opt rrule.ROption
	switch frequency {
	case models.FrequencyWeekly:
		opt = rrule.ROption{
			Freq:      rrule.WEEKLY,
			Byweekday: []rrule.Weekday{rrule.MO},
			Dtstart:   weeklyAnchor,
		}
	case models.FrequencyMonthly:
		opt = rrule.ROption{
			Freq:       rrule.MONTHLY,
			Bymonthday: []int{1},
			Dtstart:    monthlyAnchor,
		}
	default:
		opt = rrule.ROption{
			Freq:    rrule.DAILY,
			Dtstart: dailyAnchor,
		}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		// The options above are constant; this only trips on a programming
		// error. Fall back to the start of the current day.
		return now.Truncate(24 * time.Hour)
	}

	start := rule.Before(now, true)
	if start.IsZero() {
		return now.Truncate(24 * time.Hour)
	}
	return start
}

// Next returns the start of the following period, the instant at which the
// habit becomes due again.
func Next(frequency string, now time.Time) time.Time {
	start := Start(frequency, now)
	switch frequency {
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, 7)
	case models.FrequencyMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}
