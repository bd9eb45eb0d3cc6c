// Package alarm owns the active-alarm state machine. A single authoritative
// Tracker holds every triggered-but-unresolved reminder; presentation
// surfaces (the web SSE stream, the Telegram notifier) subscribe to its
// event feed and route user actions back through its transition methods, so
// dismissing an alarm on one surface stops it everywhere.
package alarm

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Joniyal/tudum/internal/models"
)

// ErrAlarmNotActive is returned for actions on a habit with no active alarm.
var ErrAlarmNotActive = errors.New("alarm not active")

// Completer records a habit completion. A failure leaves the alarm active so
// the user can retry or dismiss manually.
type Completer interface {
	Complete(ctx context.Context, habitID, userID string, completedAt time.Time) error
}

const (
	// DefaultRepresentInterval is how often a triggered alarm re-presents
	// itself with updated elapsed time.
	DefaultRepresentInterval = 30 * time.Second
	// dedupeGrace is how long a consumed minute-granular dedupe key survives
	// beyond the alarm duration before it is garbage-collected.
	dedupeGrace = 2 * time.Minute
	// subscriberBuffer bounds each subscriber channel; events to a full
	// subscriber are dropped rather than blocking the tracker.
	subscriberBuffer = 16
)

type activeAlarm struct {
	habit        models.Habit
	triggeredAt  time.Time
	snoozedUntil *time.Time

	represent Timer
	expire    Timer
	snooze    Timer
}

func (a *activeAlarm) cancelTimers() {
	if a.represent != nil {
		a.represent.Stop()
	}
	if a.expire != nil {
		a.expire.Stop()
	}
	if a.snooze != nil {
		a.snooze.Stop()
	}
}

type subscriber struct {
	userID string // empty subscribes to every user's events
	ch     chan Event
}

type Tracker struct {
	mu             sync.Mutex
	clock          Clock
	completer      Completer
	representEvery time.Duration

	alarms    map[string]*activeAlarm // keyed by habit id
	dedupe    map[string]Timer        // habitID|HH:MM -> gc timer
	subs      map[int]*subscriber
	nextSubID int
	closed    bool
}

type Option func(*Tracker)

// WithClock substitutes the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

func WithRepresentInterval(d time.Duration) Option {
	return func(t *Tracker) { t.representEvery = d }
}

func NewTracker(completer Completer, opts ...Option) *Tracker {
	t := &Tracker{
		clock:          systemClock{},
		completer:      completer,
		representEvery: DefaultRepresentInterval,
		alarms:         make(map[string]*activeAlarm),
		dedupe:         make(map[string]Timer),
		subs:           make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe returns an event channel for one user's alarms, or for every
// user when userID is empty. The returned cancel function must be called to
// release the subscription.
func (t *Tracker) Subscribe(userID string) (<-chan Event, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSubID
	t.nextSubID++
	sub := &subscriber{userID: userID, ch: make(chan Event, subscriberBuffer)}
	t.subs[id] = sub

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if s, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Trigger moves a habit from idle to triggered. It is a no-op (returning
// false) when the habit already has an active or snoozed alarm, or when the
// minute-granular dedupe key has been consumed, so the 5-second poll cadence
// cannot re-trigger the same reminder within its matching minute.
func (t *Tracker) Trigger(habit models.Habit, currentTime string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	key := habit.HabitID + "|" + currentTime
	if _, seen := t.dedupe[key]; seen {
		return false
	}
	if _, active := t.alarms[habit.HabitID]; active {
		return false
	}

	grace := dedupeGrace
	if habit.HasFiniteDuration() {
		grace += time.Duration(habit.AlarmDuration) * time.Minute
	}
	t.dedupe[key] = t.clock.AfterFunc(grace, func() {
		t.mu.Lock()
		delete(t.dedupe, key)
		t.mu.Unlock()
	})

	a := &activeAlarm{habit: habit, triggeredAt: t.clock.Now()}
	t.alarms[habit.HabitID] = a
	t.armLocked(a)
	t.broadcastLocked(t.triggerEventLocked(a))
	return true
}

// armLocked schedules the re-presentation tick and, for finite durations,
// the auto-stop.
func (t *Tracker) armLocked(a *activeAlarm) {
	habitID := a.habit.HabitID
	a.represent = t.clock.AfterFunc(t.representEvery, func() {
		t.representTick(habitID)
	})
	if a.habit.HasFiniteDuration() {
		d := time.Duration(a.habit.AlarmDuration) * time.Minute
		a.expire = t.clock.AfterFunc(d, func() {
			t.expireTick(habitID)
		})
	}
}

func (t *Tracker) representTick(habitID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[habitID]
	if !ok || a.snoozedUntil != nil {
		return
	}
	ev := t.triggerEventLocked(a)
	ev.Type = EventRepresent
	t.broadcastLocked(ev)
	a.represent = t.clock.AfterFunc(t.representEvery, func() {
		t.representTick(habitID)
	})
}

func (t *Tracker) expireTick(habitID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[habitID]
	if !ok || a.snoozedUntil != nil {
		return
	}
	t.stopLocked(a, StopExpired)
}

// Dismiss ends an alarm without completing the habit. Dismissing an inactive
// habit is an idempotent no-op.
func (t *Tracker) Dismiss(habitID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[habitID]
	if !ok {
		return false
	}
	t.stopLocked(a, StopDismissed)
	return true
}

// MarkCompleted ends an alarm whose habit was completed outside the alarm
// surfaces (e.g. the regular habit-completion endpoint). No-op if inactive.
func (t *Tracker) MarkCompleted(habitID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[habitID]
	if !ok {
		return false
	}
	t.stopLocked(a, StopCompleted)
	return true
}

// Complete records a completion for the alarm's habit and, on success, ends
// the alarm everywhere. On failure the alarm stays active and the error is
// returned for the surface to present.
func (t *Tracker) Complete(ctx context.Context, habitID string) error {
	t.mu.Lock()
	a, ok := t.alarms[habitID]
	if !ok {
		t.mu.Unlock()
		return ErrAlarmNotActive
	}
	userID := a.habit.UserID
	t.mu.Unlock()

	// The completion call goes over the network; never hold the lock here.
	if err := t.completer.Complete(ctx, habitID, userID, t.clock.Now()); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.alarms[habitID]; ok {
		t.stopLocked(a, StopCompleted)
	}
	return nil
}

// Snooze hides the alarm for the given number of minutes, after which it
// re-triggers with a fresh trigger timestamp without re-querying the
// reminder source. Snoozing an already snoozed alarm refreshes the deadline.
func (t *Tracker) Snooze(habitID string, minutes int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[habitID]
	if !ok || minutes <= 0 {
		return false
	}
	a.cancelTimers()

	until := t.clock.Now().Add(time.Duration(minutes) * time.Minute)
	a.snoozedUntil = &until
	a.snooze = t.clock.AfterFunc(time.Duration(minutes)*time.Minute, func() {
		t.wake(habitID)
	})

	t.broadcastLocked(Event{
		Type:          EventSnooze,
		HabitID:       habitID,
		UserID:        a.habit.UserID,
		SnoozeMinutes: minutes,
	})
	return true
}

// wake re-triggers a snoozed alarm once its snooze elapses.
func (t *Tracker) wake(habitID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[habitID]
	if !ok || a.snoozedUntil == nil {
		return
	}
	a.snoozedUntil = nil
	a.snooze = nil
	a.triggeredAt = t.clock.Now()
	t.armLocked(a)
	t.broadcastLocked(t.triggerEventLocked(a))
}

func (t *Tracker) stopLocked(a *activeAlarm, reason StopReason) {
	a.cancelTimers()
	delete(t.alarms, a.habit.HabitID)
	t.broadcastLocked(Event{
		Type:    EventStop,
		HabitID: a.habit.HabitID,
		UserID:  a.habit.UserID,
		Reason:  reason,
	})
}

// Active returns snapshots of the user's current alarms, oldest first, so a
// reconnecting client can restore its presentation.
func (t *Tracker) Active(userID string) []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	var snapshots []Snapshot
	for _, a := range t.alarms {
		if a.habit.UserID != userID {
			continue
		}
		snap := Snapshot{
			Habit:        a.habit,
			TriggeredAt:  a.triggeredAt,
			SnoozedUntil: a.snoozedUntil,
		}
		if a.snoozedUntil == nil {
			snap.ElapsedSeconds = int64(now.Sub(a.triggeredAt).Seconds())
			snap.RemainingSeconds = remainingSeconds(a, now)
		} else if a.habit.HasFiniteDuration() {
			// The countdown restarts from the wake timestamp, so a snoozed
			// alarm reports the full duration rather than a stale remainder.
			full := int64(a.habit.AlarmDuration) * 60
			snap.RemainingSeconds = &full
		}
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].TriggeredAt.Before(snapshots[j].TriggeredAt)
	})
	return snapshots
}

// Owner returns the user owning the active alarm for a habit, if any.
func (t *Tracker) Owner(habitID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.alarms[habitID]
	if !ok {
		return "", false
	}
	return a.habit.UserID, true
}

// Shutdown cancels every timer and closes every subscriber channel. The
// tracker accepts no triggers afterwards; active alarms are simply lost, to
// be rediscovered from the reminder source after restart.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for _, a := range t.alarms {
		a.cancelTimers()
	}
	t.alarms = make(map[string]*activeAlarm)
	for key, timer := range t.dedupe {
		timer.Stop()
		delete(t.dedupe, key)
	}
	for id, sub := range t.subs {
		close(sub.ch)
		delete(t.subs, id)
	}
}

func (t *Tracker) triggerEventLocked(a *activeAlarm) Event {
	habit := a.habit
	now := t.clock.Now()
	return Event{
		Type:             EventTriggered,
		HabitID:          habit.HabitID,
		UserID:           habit.UserID,
		Habit:            &habit,
		TriggeredAt:      a.triggeredAt,
		ElapsedSeconds:   int64(now.Sub(a.triggeredAt).Seconds()),
		RemainingSeconds: remainingSeconds(a, now),
	}
}

func remainingSeconds(a *activeAlarm, now time.Time) *int64 {
	if !a.habit.HasFiniteDuration() {
		return nil
	}
	total := time.Duration(a.habit.AlarmDuration) * time.Minute
	remaining := int64((total - now.Sub(a.triggeredAt)).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

func (t *Tracker) broadcastLocked(ev Event) {
	for _, sub := range t.subs {
		if sub.userID != "" && sub.userID != ev.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber; drop rather than stall alarm handling.
		}
	}
}
