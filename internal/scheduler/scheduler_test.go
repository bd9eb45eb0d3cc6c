package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/reminder"
)

type fakeSource struct {
	mu  sync.Mutex
	due []*models.Habit
}

func (f *fakeSource) DueAll(ctx context.Context, now time.Time) (*reminder.DueSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &reminder.DueSet{Reminders: f.due, CurrentTime: "09:00"}, nil
}

type fakeTracker struct {
	mu       sync.Mutex
	triggers []string
}

func (f *fakeTracker) Trigger(habit models.Habit, currentTime string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, habit.HabitID+"|"+currentTime)
	return true
}

func (f *fakeTracker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.triggers)
}

func TestScheduler_FeedsDueHabitsToTracker(t *testing.T) {
	source := &fakeSource{due: []*models.Habit{
		{HabitID: "h1", UserID: "u1", Title: "Drink Water"},
	}}
	tracker := &fakeTracker{}

	s := New(source, tracker)
	s.checkInterval = time.Hour // only the initial check and Notify fire

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return tracker.count() == 1 })

	source.mu.Lock()
	source.due = append(source.due, &models.Habit{HabitID: "h2", UserID: "u1", Title: "Stretch"})
	source.mu.Unlock()

	s.Notify()
	waitFor(t, func() bool { return tracker.count() == 3 })

	cancel()
	<-done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
