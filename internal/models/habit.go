package models

import "time"

const (
	FrequencyDaily   = "DAILY"
	FrequencyWeekly  = "WEEKLY"
	FrequencyMonthly = "MONTHLY"
)

// AlarmUntilCompleted is the alarm_duration sentinel meaning the alarm never
// auto-expires; only dismiss or complete ends it.
const AlarmUntilCompleted = -1

type Habit struct {
	HabitID         string        `json:"id"`
	UserID          string        `json:"userId"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Frequency       string        `json:"frequency"`
	ReminderEnabled bool          `json:"reminderEnabled"`
	ReminderTime    *string       `json:"reminderTime"`  // "HH:MM", UTC
	AlarmDuration   int           `json:"alarmDuration"` // minutes, or AlarmUntilCompleted
	Archived        bool          `json:"archived"`
	CreatedAt       time.Time     `json:"createdAt"`
	Completions     []*Completion `json:"completions,omitempty"`
}

// HasFiniteDuration reports whether the habit's alarm auto-stops after a
// fixed number of minutes.
func (h *Habit) HasFiniteDuration() bool {
	return h.AlarmDuration > 0
}
