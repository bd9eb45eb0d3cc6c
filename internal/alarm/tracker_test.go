package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Joniyal/tudum/internal/models"
)

// fakeClock drives tracker timers deterministically. Advance fires due
// callbacks in timestamp order with the clock lock released, so callbacks
// may schedule further timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	fired   bool
	stopped bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.at.After(c.now) {
			c.now = next.at
		}
		next.fired = true
		f := next.f
		c.mu.Unlock()
		f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type stubCompleter struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, habitID, userID string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func testHabit(id string, duration int) models.Habit {
	rt := "09:00"
	return models.Habit{
		HabitID:         id,
		UserID:          "u1",
		Title:           "Drink Water",
		Frequency:       models.FrequencyDaily,
		ReminderEnabled: true,
		ReminderTime:    &rt,
		AlarmDuration:   duration,
	}
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func newTestTracker(t *testing.T, completer Completer) (*Tracker, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 9, 16, 9, 0, 0, 0, time.UTC))
	if completer == nil {
		completer = &stubCompleter{}
	}
	tracker := NewTracker(completer, WithClock(clock))
	t.Cleanup(tracker.Shutdown)
	return tracker, clock
}

func TestTrigger_DedupesSameMinute(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	habit := testHabit("h1", 2)

	if !tracker.Trigger(habit, "09:00") {
		t.Fatal("first trigger should succeed")
	}
	// A second poll 30 seconds later still reports the habit due for 09:00.
	clock.Advance(30 * time.Second)
	if tracker.Trigger(habit, "09:00") {
		t.Fatal("second trigger within the same minute should be deduped")
	}
}

func TestTrigger_ActiveAlarmNotRetriggered(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)
	habit := testHabit("h1", models.AlarmUntilCompleted)

	tracker.Trigger(habit, "09:00")
	if tracker.Trigger(habit, "09:01") {
		t.Fatal("trigger while alarm active should be a no-op")
	}
}

func TestDedupeKey_GarbageCollected(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	habit := testHabit("h1", 2)

	tracker.Trigger(habit, "09:00")
	tracker.Dismiss("h1")

	// Key survives duration + 2 minutes.
	clock.Advance(3 * time.Minute)
	if tracker.Trigger(habit, "09:00") {
		t.Fatal("dedupe key should still be held")
	}
	clock.Advance(2 * time.Minute)
	if !tracker.Trigger(habit, "09:00") {
		t.Fatal("dedupe key should have been garbage-collected")
	}
}

func TestExpire_FiniteDuration(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	events, cancel := tracker.Subscribe("u1")
	defer cancel()

	tracker.Trigger(testHabit("h1", 5), "09:00")

	clock.Advance(4*time.Minute + 59*time.Second)
	if len(tracker.Active("u1")) != 1 {
		t.Fatal("alarm should still be active before the duration elapses")
	}

	clock.Advance(time.Second)
	if len(tracker.Active("u1")) != 0 {
		t.Fatal("alarm should have expired at 5 minutes")
	}

	var stop *Event
	for _, ev := range drain(events) {
		if ev.Type == EventStop {
			ev := ev
			stop = &ev
		}
	}
	if stop == nil || stop.Reason != StopExpired {
		t.Fatalf("expected STOP_ALARM with reason expired, got %+v", stop)
	}
}

func TestSentinelDuration_NeverExpires(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	tracker.Trigger(testHabit("h1", models.AlarmUntilCompleted), "09:00")

	clock.Advance(24 * time.Hour)
	if len(tracker.Active("u1")) != 1 {
		t.Fatal("until-completed alarm must never auto-expire")
	}

	if !tracker.Dismiss("h1") {
		t.Fatal("dismiss should end the alarm")
	}
	if len(tracker.Active("u1")) != 0 {
		t.Fatal("alarm should be gone after dismiss")
	}
}

func TestActive_SnoozedSnapshotResetsCountdown(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	tracker.Trigger(testHabit("h1", 5), "09:00")

	clock.Advance(2 * time.Minute)
	if !tracker.Snooze("h1", 5) {
		t.Fatal("snooze should succeed")
	}

	snapshots := tracker.Active("u1")
	if len(snapshots) != 1 {
		t.Fatalf("active = %d, want 1", len(snapshots))
	}
	snap := snapshots[0]
	if snap.SnoozedUntil == nil {
		t.Fatal("snapshot should carry the snooze deadline")
	}
	if snap.ElapsedSeconds != 0 {
		t.Errorf("ElapsedSeconds = %d, want 0 while snoozed", snap.ElapsedSeconds)
	}
	// Expiry restarts from the wake timestamp, so the snapshot reports the
	// full duration rather than the pre-snooze remainder.
	if snap.RemainingSeconds == nil || *snap.RemainingSeconds != 300 {
		t.Errorf("RemainingSeconds = %v, want 300", snap.RemainingSeconds)
	}
}

func TestSnooze_RetriggersAfterDelay(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	events, cancel := tracker.Subscribe("u1")
	defer cancel()

	start := clock.Now()
	tracker.Trigger(testHabit("h1", 5), "09:00")
	clock.Advance(10 * time.Second)

	if !tracker.Snooze("h1", 2) {
		t.Fatal("snooze should succeed on an active alarm")
	}
	drain(events)

	// One minute in: still snoozed, no re-trigger.
	clock.Advance(time.Minute)
	for _, ev := range drain(events) {
		if ev.Type == EventTriggered {
			t.Fatal("alarm re-triggered before the snooze elapsed")
		}
	}

	// Snooze elapses at trigger+2m10s.
	clock.Advance(time.Minute)
	var retrigger *Event
	for _, ev := range drain(events) {
		if ev.Type == EventTriggered {
			ev := ev
			retrigger = &ev
		}
	}
	if retrigger == nil {
		t.Fatal("expected re-trigger after snooze elapsed")
	}
	want := start.Add(2*time.Minute + 10*time.Second)
	if !retrigger.TriggeredAt.Equal(want) {
		t.Errorf("re-trigger timestamp = %v, want %v", retrigger.TriggeredAt, want)
	}
}

func TestSnooze_ResetsExpiryFromRetrigger(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	tracker.Trigger(testHabit("h1", 2), "09:00")

	clock.Advance(90 * time.Second)
	tracker.Snooze("h1", 1)

	// Without the snooze the alarm would expire at 2m. The snooze cancels
	// that; expiry restarts from the fresh trigger timestamp.
	clock.Advance(time.Minute) // re-triggers at 2m30s
	if len(tracker.Active("u1")) != 1 {
		t.Fatal("alarm should be active again after snooze")
	}
	clock.Advance(119 * time.Second)
	if len(tracker.Active("u1")) != 1 {
		t.Fatal("alarm should not expire before 2 minutes from re-trigger")
	}
	clock.Advance(time.Second)
	if len(tracker.Active("u1")) != 0 {
		t.Fatal("alarm should expire 2 minutes after re-trigger")
	}
}

func TestDismiss_Idempotent(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)
	events, cancel := tracker.Subscribe("u1")
	defer cancel()

	tracker.Trigger(testHabit("h1", 5), "09:00")
	drain(events)

	if !tracker.Dismiss("h1") {
		t.Fatal("first dismiss should report an alarm stopped")
	}
	if tracker.Dismiss("h1") {
		t.Fatal("second dismiss should be a no-op")
	}

	stops := 0
	for _, ev := range drain(events) {
		if ev.Type == EventStop {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("expected exactly one STOP_ALARM event, got %d", stops)
	}
}

func TestComplete_FailureLeavesAlarmActive(t *testing.T) {
	completer := &stubCompleter{err: errors.New("already completed for this period")}
	tracker, _ := newTestTracker(t, completer)
	tracker.Trigger(testHabit("h1", 5), "09:00")

	if err := tracker.Complete(context.Background(), "h1"); err == nil {
		t.Fatal("expected completion error to propagate")
	}
	if len(tracker.Active("u1")) != 1 {
		t.Fatal("alarm must stay active after a failed completion")
	}

	completer.mu.Lock()
	completer.err = nil
	completer.mu.Unlock()

	if err := tracker.Complete(context.Background(), "h1"); err != nil {
		t.Fatalf("completion should succeed: %v", err)
	}
	if len(tracker.Active("u1")) != 0 {
		t.Fatal("alarm should stop after a successful completion")
	}
}

func TestComplete_NoActiveAlarm(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)
	if err := tracker.Complete(context.Background(), "nope"); !errors.Is(err, ErrAlarmNotActive) {
		t.Fatalf("expected ErrAlarmNotActive, got %v", err)
	}
}

func TestRepresent_TicksWhileTriggered(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	events, cancel := tracker.Subscribe("u1")
	defer cancel()

	tracker.Trigger(testHabit("h1", 5), "09:00")
	drain(events)

	clock.Advance(30 * time.Second)
	represents := 0
	var last Event
	for _, ev := range drain(events) {
		if ev.Type == EventRepresent {
			represents++
			last = ev
		}
	}
	if represents != 1 {
		t.Fatalf("expected one re-presentation after 30s, got %d", represents)
	}
	if last.ElapsedSeconds != 30 {
		t.Errorf("ElapsedSeconds = %d, want 30", last.ElapsedSeconds)
	}
	if last.RemainingSeconds == nil || *last.RemainingSeconds != 270 {
		t.Errorf("RemainingSeconds = %v, want 270", last.RemainingSeconds)
	}
}

func TestRepresent_OmitsCountdownForSentinel(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	events, cancel := tracker.Subscribe("u1")
	defer cancel()

	tracker.Trigger(testHabit("h1", models.AlarmUntilCompleted), "09:00")
	drain(events)

	clock.Advance(30 * time.Second)
	for _, ev := range drain(events) {
		if ev.Type == EventRepresent && ev.RemainingSeconds != nil {
			t.Fatal("until-completed alarms must not carry a countdown")
		}
	}
}

func TestSubscribe_ScopedToUser(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)
	mine, cancelMine := tracker.Subscribe("u1")
	defer cancelMine()
	other, cancelOther := tracker.Subscribe("u2")
	defer cancelOther()

	tracker.Trigger(testHabit("h1", 5), "09:00")

	if len(drain(mine)) == 0 {
		t.Fatal("owner's subscription should receive the trigger")
	}
	if len(drain(other)) != 0 {
		t.Fatal("another user's subscription must not receive the trigger")
	}
}

// Full §-style scenario: "Drink Water", 09:00, duration 2. Poll triggers it,
// a same-minute second poll is deduped, and with no user action the alarm
// expires at 09:02.
func TestScenario_TriggerDedupeExpire(t *testing.T) {
	tracker, clock := newTestTracker(t, nil)
	habit := testHabit("h1", 2)

	if !tracker.Trigger(habit, "09:00") {
		t.Fatal("09:00 poll should trigger the alarm")
	}
	clock.Advance(30 * time.Second)
	if tracker.Trigger(habit, "09:00") {
		t.Fatal("09:00:30 poll should be deduped")
	}
	clock.Advance(90 * time.Second)
	if len(tracker.Active("u1")) != 0 {
		t.Fatal("alarm should have auto-stopped at 09:02")
	}
}
