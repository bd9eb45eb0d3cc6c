package server

import (
	"net/http"
	"time"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/repository"
)

type statsResponse struct {
	HabitCount      int                   `json:"habitCount"`
	CompletionCount int                   `json:"completionCount"`
	UnreadMessages  int                   `json:"unreadMessages"`
	Daily           []repository.DayCount `json:"daily"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, user *models.User) {
	habitCount, err := s.habits.CountByUserID(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	completionCount, err := s.completions.CountByUserID(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	unread, err := s.messages.UnreadCount(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	daily, err := s.completions.CountByDay(r.Context(), user.UserID, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if daily == nil {
		daily = []repository.DayCount{}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		HabitCount:      habitCount,
		CompletionCount: completionCount,
		UnreadMessages:  unread,
		Daily:           daily,
	})
}
