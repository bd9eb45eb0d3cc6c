// Package reminder implements the due-reminder source: the single query both
// alarm surfaces rely on to discover habits whose reminder time matches the
// current minute and which have not been satisfied for their period.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/period"
)

type HabitSource interface {
	GetDueAt(ctx context.Context, times []string) ([]*models.Habit, error)
	GetDueAtForUser(ctx context.Context, userID string, times []string) ([]*models.Habit, error)
}

type CompletionSource interface {
	ExistsSince(ctx context.Context, habitID, userID string, since time.Time) (bool, error)
}

// DueSet is the poll response: habits due right now plus the minute string
// callers use for notification dedupe keys.
type DueSet struct {
	Reminders   []*models.Habit `json:"reminders"`
	CurrentTime string          `json:"currentTime"` // "HH:MM", UTC
}

type Source struct {
	habits      HabitSource
	completions CompletionSource
}

func New(habits HabitSource, completions CompletionSource) *Source {
	return &Source{habits: habits, completions: completions}
}

// MinuteStrings returns the current and previous UTC minute as "HH:MM".
// Matching against both tolerates a poll landing just after a minute rolls
// over; the per-minute dedupe key keeps this from double-triggering.
func MinuteStrings(now time.Time) (current, previous string) {
	now = now.UTC()
	prev := now.Add(-time.Minute)
	return fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute()),
		fmt.Sprintf("%02d:%02d", prev.Hour(), prev.Minute())
}

// DueForUser returns the user's due reminders at the given instant.
func (s *Source) DueForUser(ctx context.Context, userID string, now time.Time) (*DueSet, error) {
	current, previous := MinuteStrings(now)
	habits, err := s.habits.GetDueAtForUser(ctx, userID, []string{current, previous})
	if err != nil {
		return nil, fmt.Errorf("failed to query due habits: %w", err)
	}
	return s.filter(ctx, habits, now, current)
}

// DueAll returns due reminders across all users, for the background poller.
func (s *Source) DueAll(ctx context.Context, now time.Time) (*DueSet, error) {
	current, previous := MinuteStrings(now)
	habits, err := s.habits.GetDueAt(ctx, []string{current, previous})
	if err != nil {
		return nil, fmt.Errorf("failed to query due habits: %w", err)
	}
	return s.filter(ctx, habits, now, current)
}

// filter drops habits already satisfied for their current period. Daily
// habits check for a completion today; weekly and monthly habits check
// against their period start, so a habit completed on Monday stays quiet
// for the rest of the week.
func (s *Source) filter(ctx context.Context, habits []*models.Habit, now time.Time, current string) (*DueSet, error) {
	due := &DueSet{Reminders: []*models.Habit{}, CurrentTime: current}
	for _, habit := range habits {
		// The due query excludes these already; a disabled or archived habit
		// is never due no matter what the source hands us.
		if !habit.ReminderEnabled || habit.Archived {
			continue
		}
		since := period.Start(habit.Frequency, now)
		done, err := s.completions.ExistsSince(ctx, habit.HabitID, habit.UserID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to check completion for habit %s: %w", habit.HabitID, err)
		}
		if done {
			continue
		}
		due.Reminders = append(due.Reminders, habit)
	}
	return due, nil
}
