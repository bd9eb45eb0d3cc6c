// Package scheduler runs the background polling loop that discovers due
// reminders and feeds them to the alarm tracker.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/reminder"
)

type DueLister interface {
	DueAll(ctx context.Context, now time.Time) (*reminder.DueSet, error)
}

type AlarmTrigger interface {
	Trigger(habit models.Habit, currentTime string) bool
}

type Scheduler struct {
	source        DueLister
	tracker       AlarmTrigger
	checkInterval time.Duration
	notifyCh      chan struct{}
}

func New(source DueLister, tracker AlarmTrigger) *Scheduler {
	return &Scheduler{
		source:        source,
		tracker:       tracker,
		checkInterval: 5 * time.Second,
		notifyCh:      make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Println("Scheduler started")
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run first check
	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.notifyCh:
			log.Println("Scheduler triggered by notification")
			s.check(ctx)
		}
	}
}

// check polls the reminder source once. A failed poll is logged and skipped;
// the fixed interval is the retry.
func (s *Scheduler) check(ctx context.Context) {
	due, err := s.source.DueAll(ctx, time.Now())
	if err != nil {
		log.Printf("Failed to check due reminders: %v", err)
		return
	}

	for _, habit := range due.Reminders {
		if s.tracker.Trigger(*habit, due.CurrentTime) {
			log.Printf("Triggered alarm for habit %s (%s) at %s", habit.HabitID, habit.Title, due.CurrentTime)
		}
	}
}
