package server

import (
	"log"
	"net/http"
	"time"

	"github.com/Joniyal/tudum/internal/models"
)

// handleRemindersCheck is the foreground poll: habits due for the caller at
// this minute that are not yet satisfied for their period.
func (s *Server) handleRemindersCheck(w http.ResponseWriter, r *http.Request, user *models.User) {
	due, err := s.source.DueForUser(r.Context(), user.UserID, time.Now())
	if err != nil {
		log.Printf("Failed to check reminders for user %s: %v", user.UserID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, due)
}
