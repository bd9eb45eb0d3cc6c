package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Joniyal/tudum/internal/alarm"
	"github.com/Joniyal/tudum/internal/habits"
	"github.com/Joniyal/tudum/internal/models"
)

// handleActiveAlarms returns the caller's currently ringing (or snoozed)
// alarms so a reconnecting tab can restore its modals.
func (s *Server) handleActiveAlarms(w http.ResponseWriter, r *http.Request, user *models.User) {
	snapshots := s.tracker.Active(user.UserID)
	if snapshots == nil {
		snapshots = []alarm.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alarms": snapshots})
}

// handleAlarmStream is the foreground surface: a server-sent event stream of
// the caller's alarm events (trigger, re-present, stop, snooze).
func (s *Server) handleAlarmStream(w http.ResponseWriter, r *http.Request, user *models.User) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.tracker.Subscribe(user.UserID)
	defer cancel()

	// Replay active alarms first so a tab opened mid-alarm still rings.
	// Snoozed alarms stay hidden; they re-present themselves through a
	// fresh trigger event when the snooze elapses.
	for _, snapshot := range s.tracker.Active(user.UserID) {
		if snapshot.SnoozedUntil != nil {
			continue
		}
		habit := snapshot.Habit
		writeSSE(w, alarm.Event{
			Type:             alarm.EventTriggered,
			HabitID:          habit.HabitID,
			Habit:            &habit,
			TriggeredAt:      snapshot.TriggeredAt,
			ElapsedSeconds:   snapshot.ElapsedSeconds,
			RemainingSeconds: snapshot.RemainingSeconds,
		})
	}
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev alarm.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to marshal alarm event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}

// ownsAlarm rejects actions on another user's alarm without revealing
// whether it exists.
func (s *Server) ownsAlarm(habitID string, user *models.User) bool {
	owner, active := s.tracker.Owner(habitID)
	return !active || owner == user.UserID
}

func (s *Server) handleAlarmComplete(w http.ResponseWriter, r *http.Request, user *models.User) {
	habitID := r.PathValue("habitId")
	if !s.ownsAlarm(habitID, user) {
		writeError(w, http.StatusNotFound, "Alarm not found")
		return
	}

	err := s.tracker.Complete(r.Context(), habitID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, alarm.ErrAlarmNotActive):
		writeError(w, http.StatusNotFound, "Alarm not found")
	case errors.Is(err, habits.ErrAlreadyCompleted):
		// The alarm stays active; the user can still dismiss it.
		writeError(w, http.StatusBadRequest, "Habit already completed for this period")
	default:
		log.Printf("Failed to complete habit %s from alarm: %v", habitID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) handleAlarmSnooze(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req snoozeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch req.Minutes {
	case 1, 2, 5:
	default:
		writeError(w, http.StatusBadRequest, "Snooze must be 1, 2, or 5 minutes")
		return
	}

	habitID := r.PathValue("habitId")
	if !s.ownsAlarm(habitID, user) {
		writeError(w, http.StatusNotFound, "Alarm not found")
		return
	}
	if !s.tracker.Snooze(habitID, req.Minutes) {
		writeError(w, http.StatusNotFound, "Alarm not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlarmDismiss(w http.ResponseWriter, r *http.Request, user *models.User) {
	habitID := r.PathValue("habitId")
	if !s.ownsAlarm(habitID, user) {
		writeError(w, http.StatusNotFound, "Alarm not found")
		return
	}
	// Dismissing an already-gone alarm is a no-op, not an error.
	s.tracker.Dismiss(habitID)
	w.WriteHeader(http.StatusNoContent)
}
