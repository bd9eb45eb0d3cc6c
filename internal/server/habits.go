package server

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Joniyal/tudum/internal/habits"
	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/repository"
)

var reminderTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

type habitInput struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Frequency       string   `json:"frequency"`
	ReminderEnabled bool     `json:"reminderEnabled"`
	ReminderTime    *string  `json:"reminderTime"` // "HH:MM", UTC
	AlarmDuration   *int     `json:"alarmDuration"`
	Archived        *bool    `json:"archived"`
	SharedWith      []string `json:"sharedWith"`
}

// validateHabitInput normalizes the input and returns a user-facing error
// message, or "" when valid.
func validateHabitInput(in *habitInput) string {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return "Title is required"
	}
	if in.Frequency == "" {
		in.Frequency = models.FrequencyDaily
	}
	switch in.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
	default:
		return "Frequency must be DAILY, WEEKLY, or MONTHLY"
	}
	if in.ReminderTime != nil && !reminderTimePattern.MatchString(*in.ReminderTime) {
		return "Reminder time must be HH:MM"
	}
	if in.ReminderEnabled && in.ReminderTime == nil {
		return "Reminder time is required when reminders are enabled"
	}
	if in.AlarmDuration == nil {
		d := 5
		in.AlarmDuration = &d
	}
	if *in.AlarmDuration != models.AlarmUntilCompleted && *in.AlarmDuration < 1 {
		return "Alarm duration must be at least 1 minute, or -1 for until completed"
	}
	return ""
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request, user *models.User) {
	list, err := s.habits.GetByUserID(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	for _, habit := range list {
		completions, err := s.completions.ListRecentByHabit(r.Context(), habit.HabitID, 30)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		habit.Completions = completions
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request, user *models.User) {
	var in habitInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateHabitInput(&in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	habit := &models.Habit{
		UserID:          user.UserID,
		Title:           in.Title,
		Description:     in.Description,
		Frequency:       in.Frequency,
		ReminderEnabled: in.ReminderEnabled,
		ReminderTime:    in.ReminderTime,
		AlarmDuration:   *in.AlarmDuration,
	}
	if err := s.habits.Create(r.Context(), habit); err != nil {
		log.Printf("Failed to create habit: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Replicate the habit for accountability partners the user shared it
	// with. Non-partners are skipped silently.
	for _, partnerID := range in.SharedWith {
		ok, err := s.connections.ArePartners(r.Context(), user.UserID, partnerID)
		if err != nil || !ok {
			continue
		}
		shared := &models.Habit{
			UserID:          partnerID,
			Title:           in.Title,
			Description:     in.Description,
			Frequency:       in.Frequency,
			ReminderEnabled: in.ReminderEnabled,
			ReminderTime:    in.ReminderTime,
			AlarmDuration:   *in.AlarmDuration,
		}
		if err := s.habits.Create(r.Context(), shared); err != nil {
			log.Printf("Failed to replicate habit for partner %s: %v", partnerID, err)
		}
	}

	writeJSON(w, http.StatusCreated, habit)
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request, user *models.User) {
	habit, err := s.habits.GetByID(r.Context(), r.PathValue("id"), user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Habit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	completions, err := s.completions.ListRecentByHabit(r.Context(), habit.HabitID, 30)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	habit.Completions = completions
	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request, user *models.User) {
	habit, err := s.habits.GetByID(r.Context(), r.PathValue("id"), user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Habit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var in habitInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateHabitInput(&in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	habit.Title = in.Title
	habit.Description = in.Description
	habit.Frequency = in.Frequency
	habit.ReminderEnabled = in.ReminderEnabled
	habit.ReminderTime = in.ReminderTime
	habit.AlarmDuration = *in.AlarmDuration
	if in.Archived != nil {
		habit.Archived = *in.Archived
	}

	if err := s.habits.Update(r.Context(), habit); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Archiving or disabling reminders ends any ringing alarm.
	if habit.Archived || !habit.ReminderEnabled {
		s.tracker.Dismiss(habit.HabitID)
	}

	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request, user *models.User) {
	habitID := r.PathValue("id")
	if err := s.habits.Delete(r.Context(), habitID, user.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Habit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.tracker.Dismiss(habitID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Habit deleted"})
}

type completeRequest struct {
	CompletedAt *time.Time `json:"completedAt"`
	Notes       string     `json:"notes"`
}

func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	completedAt := time.Now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	habitID := r.PathValue("id")
	completion, err := s.habitService.CreateCompletion(r.Context(), habitID, user.UserID, completedAt, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Habit not found")
		case errors.Is(err, habits.ErrAlreadyCompleted):
			writeError(w, http.StatusBadRequest, "Habit already completed for this period")
		default:
			log.Printf("Failed to complete habit: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	// Completing through the habit UI also silences a ringing alarm.
	s.tracker.MarkCompleted(habitID)

	writeJSON(w, http.StatusCreated, completion)
}

func (s *Server) handleUncompleteHabit(w http.ResponseWriter, r *http.Request, user *models.User) {
	completionID := r.URL.Query().Get("completionId")
	if completionID == "" {
		writeError(w, http.StatusBadRequest, "Completion ID required")
		return
	}
	if err := s.habitService.RemoveCompletion(r.Context(), completionID, user.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Completion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Completion removed"})
}
