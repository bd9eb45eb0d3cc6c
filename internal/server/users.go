package server

import (
	"net/http"
	"strings"

	"github.com/Joniyal/tudum/internal/models"
)

const searchLimit = 20

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request, user *models.User) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		writeError(w, http.StatusBadRequest, "Search query must be at least 2 characters")
		return
	}

	results, err := s.users.Search(r.Context(), user.UserID, query, searchLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if results == nil {
		results = []models.UserSummary{}
	}
	writeJSON(w, http.StatusOK, results)
}
