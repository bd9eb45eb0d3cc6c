package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Joniyal/tudum/internal/alarm"
	"github.com/Joniyal/tudum/internal/habits"
	"github.com/Joniyal/tudum/internal/models"
)

type stubCompleter struct {
	err   error
	calls int
}

func (c *stubCompleter) Complete(ctx context.Context, habitID, userID string, completedAt time.Time) error {
	c.calls++
	return c.err
}

func alarmTestServer(completer *stubCompleter) (*Server, *alarm.Tracker) {
	tracker := alarm.NewTracker(completer)
	return New(Deps{Tracker: tracker}), tracker
}

func ringingHabit(habitID, userID string) models.Habit {
	return models.Habit{
		HabitID:       habitID,
		UserID:        userID,
		Title:         "Morning run",
		Frequency:     models.FrequencyDaily,
		AlarmDuration: 5,
	}
}

func alarmRequest(method, habitID, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, "/api/alarms/"+habitID+"/x", nil)
	} else {
		r = httptest.NewRequest(method, "/api/alarms/"+habitID+"/x", strings.NewReader(body))
	}
	r.SetPathValue("habitId", habitID)
	return r
}

func TestHandleActiveAlarms(t *testing.T) {
	s, tracker := alarmTestServer(&stubCompleter{})
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")
	tracker.Trigger(ringingHabit("h2", "u2"), "08:00")

	rec := httptest.NewRecorder()
	s.handleActiveAlarms(rec, httptest.NewRequest("GET", "/api/alarms", nil), &models.User{UserID: "u1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"h1"`) || strings.Contains(body, `"h2"`) {
		t.Errorf("body should contain only u1's alarm: %s", body)
	}
}

func TestHandleAlarmStream_ReplaysActiveAlarms(t *testing.T) {
	s, tracker := alarmTestServer(&stubCompleter{})
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")
	tracker.Trigger(ringingHabit("h2", "u2"), "08:00")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/alarms/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleAlarmStream(rec, req, &models.User{UserID: "u1"})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(body, "event: "+string(alarm.EventTriggered)) {
		t.Errorf("missing replayed trigger event: %s", body)
	}
	if !strings.Contains(body, `"h1"`) || strings.Contains(body, `"h2"`) {
		t.Errorf("stream should replay only u1's alarm: %s", body)
	}
}

func TestHandleAlarmStream_SkipsSnoozedAlarms(t *testing.T) {
	s, tracker := alarmTestServer(&stubCompleter{})
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")
	tracker.Trigger(ringingHabit("h2", "u1"), "08:00")
	if !tracker.Snooze("h1", 5) {
		t.Fatal("snooze should succeed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/alarms/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleAlarmStream(rec, req, &models.User{UserID: "u1"})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	// A tab reconnecting mid-snooze must not re-present the hidden alarm;
	// it re-triggers on its own when the snooze elapses.
	body := rec.Body.String()
	if strings.Contains(body, `"h1"`) {
		t.Errorf("stream replayed a snoozed alarm: %s", body)
	}
	if !strings.Contains(body, `"h2"`) {
		t.Errorf("stream should still replay the ringing alarm: %s", body)
	}
}

func TestHandleAlarmComplete(t *testing.T) {
	completer := &stubCompleter{}
	s, tracker := alarmTestServer(completer)
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")

	rec := httptest.NewRecorder()
	s.handleAlarmComplete(rec, alarmRequest("POST", "h1", ""), &models.User{UserID: "u1"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1", completer.calls)
	}
	if _, active := tracker.Owner("h1"); active {
		t.Error("alarm should be stopped after completion")
	}
}

func TestHandleAlarmComplete_NotOwner(t *testing.T) {
	completer := &stubCompleter{}
	s, tracker := alarmTestServer(completer)
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")

	rec := httptest.NewRecorder()
	s.handleAlarmComplete(rec, alarmRequest("POST", "h1", ""), &models.User{UserID: "u2"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if completer.calls != 0 {
		t.Errorf("completer should not have been called")
	}
}

func TestHandleAlarmComplete_AlreadyCompleted(t *testing.T) {
	completer := &stubCompleter{err: habits.ErrAlreadyCompleted}
	s, tracker := alarmTestServer(completer)
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")

	rec := httptest.NewRecorder()
	s.handleAlarmComplete(rec, alarmRequest("POST", "h1", ""), &models.User{UserID: "u1"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if _, active := tracker.Owner("h1"); !active {
		t.Error("alarm should remain active after a failed completion")
	}
}

func TestHandleAlarmSnooze(t *testing.T) {
	s, tracker := alarmTestServer(&stubCompleter{})
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")
	user := &models.User{UserID: "u1"}

	rec := httptest.NewRecorder()
	s.handleAlarmSnooze(rec, alarmRequest("POST", "h1", `{"minutes":3}`), user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("minutes=3: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleAlarmSnooze(rec, alarmRequest("POST", "h1", `{"minutes":2}`), user)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("minutes=2: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleAlarmSnooze(rec, alarmRequest("POST", "gone", `{"minutes":1}`), user)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown habit: status = %d, want 404", rec.Code)
	}
}

func TestHandleAlarmDismiss_Idempotent(t *testing.T) {
	s, tracker := alarmTestServer(&stubCompleter{})
	defer tracker.Shutdown()
	tracker.Trigger(ringingHabit("h1", "u1"), "08:00")
	user := &models.User{UserID: "u1"}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.handleAlarmDismiss(rec, alarmRequest("POST", "h1", ""), user)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("dismiss %d: status = %d, want 204", i, rec.Code)
		}
	}
}
