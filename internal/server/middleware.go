package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/repository"
)

const sessionCookie = "tudum_session"

type authedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// withAuth resolves the session cookie to a user or rejects with 401.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		session, err := s.sessions.GetByToken(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if session.Expired(time.Now()) {
			if err := s.sessions.Delete(r.Context(), session.Token); err != nil {
				log.Printf("Failed to delete expired session: %v", err)
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := s.users.GetByID(r.Context(), session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next(w, r, user)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
