package alarm

import (
	"time"

	"github.com/Joniyal/tudum/internal/models"
)

type EventType string

const (
	// EventTriggered fires when an alarm enters the triggered state, both on
	// first trigger and when a snooze elapses.
	EventTriggered EventType = "ALARM_TRIGGERED"
	// EventRepresent fires periodically while an alarm stays triggered so
	// surfaces can refresh their presentation with updated elapsed time.
	EventRepresent EventType = "ALARM_REPRESENT"
	// EventStop tells every surface to tear down its presentation.
	EventStop EventType = "STOP_ALARM"
	// EventSnooze tells every surface to hide its presentation until the
	// alarm re-triggers.
	EventSnooze EventType = "SNOOZE_ALARM"
)

type StopReason string

const (
	StopDismissed StopReason = "dismissed"
	StopCompleted StopReason = "completed"
	StopExpired   StopReason = "expired"
)

// Event is the control message broadcast to every subscribed surface.
type Event struct {
	Type        EventType     `json:"type"`
	HabitID     string        `json:"habitId"`
	UserID      string        `json:"-"`
	Habit       *models.Habit `json:"habit,omitempty"`
	TriggeredAt time.Time     `json:"triggeredAt,omitempty"`
	// ElapsedSeconds and RemainingSeconds feed the presentation countdown.
	// RemainingSeconds is nil for "until completed" alarms.
	ElapsedSeconds   int64      `json:"elapsedSeconds,omitempty"`
	RemainingSeconds *int64     `json:"remainingSeconds,omitempty"`
	SnoozeMinutes    int        `json:"snoozeMinutes,omitempty"`
	Reason           StopReason `json:"reason,omitempty"`
}

// Snapshot describes one active alarm, for clients reconnecting mid-alarm.
type Snapshot struct {
	Habit            models.Habit `json:"habit"`
	TriggeredAt      time.Time    `json:"triggeredAt"`
	SnoozedUntil     *time.Time   `json:"snoozedUntil,omitempty"`
	ElapsedSeconds   int64        `json:"elapsedSeconds"`
	RemainingSeconds *int64       `json:"remainingSeconds,omitempty"`
}
