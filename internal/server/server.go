// Package server exposes the HTTP API: auth, habit CRUD, completions, the
// due-reminder poll endpoint, the alarm event stream and action endpoints,
// connections, messaging, and stats.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Joniyal/tudum/internal/alarm"
	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/habits"
	"github.com/Joniyal/tudum/internal/reminder"
	"github.com/Joniyal/tudum/internal/repository"
)

// DueChecker is the foreground poll's view of the reminder source.
type DueChecker interface {
	DueForUser(ctx context.Context, userID string, now time.Time) (*reminder.DueSet, error)
}

type Deps struct {
	DB           *database.DB
	Users        *repository.UserRepository
	Sessions     *repository.SessionRepository
	Habits       *repository.HabitRepository
	Completions  *repository.CompletionRepository
	Connections  *repository.ConnectionRepository
	Messages     *repository.MessageRepository
	HabitService *habits.Service
	Source       DueChecker
	Tracker      *alarm.Tracker
	MediaDir     string
	SessionTTL   time.Duration
}

type Server struct {
	db           *database.DB
	users        *repository.UserRepository
	sessions     *repository.SessionRepository
	habits       *repository.HabitRepository
	completions  *repository.CompletionRepository
	connections  *repository.ConnectionRepository
	messages     *repository.MessageRepository
	habitService *habits.Service
	source       DueChecker
	tracker      *alarm.Tracker
	mediaDir     string
	sessionTTL   time.Duration
}

func New(deps Deps) *Server {
	return &Server{
		db:           deps.DB,
		users:        deps.Users,
		sessions:     deps.Sessions,
		habits:       deps.Habits,
		completions:  deps.Completions,
		connections:  deps.Connections,
		messages:     deps.Messages,
		habitService: deps.HabitService,
		source:       deps.Source,
		tracker:      deps.Tracker,
		mediaDir:     deps.MediaDir,
		sessionTTL:   deps.SessionTTL,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/profile", s.withAuth(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.withAuth(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/habits", s.withAuth(s.handleListHabits))
	mux.HandleFunc("POST /api/habits", s.withAuth(s.handleCreateHabit))
	mux.HandleFunc("GET /api/habits/{id}", s.withAuth(s.handleGetHabit))
	mux.HandleFunc("PUT /api/habits/{id}", s.withAuth(s.handleUpdateHabit))
	mux.HandleFunc("DELETE /api/habits/{id}", s.withAuth(s.handleDeleteHabit))
	mux.HandleFunc("POST /api/habits/{id}/complete", s.withAuth(s.handleCompleteHabit))
	mux.HandleFunc("DELETE /api/habits/{id}/complete", s.withAuth(s.handleUncompleteHabit))

	mux.HandleFunc("GET /api/reminders/check", s.withAuth(s.handleRemindersCheck))

	mux.HandleFunc("GET /api/alarms", s.withAuth(s.handleActiveAlarms))
	mux.HandleFunc("GET /api/alarms/stream", s.withAuth(s.handleAlarmStream))
	mux.HandleFunc("POST /api/alarms/{habitId}/complete", s.withAuth(s.handleAlarmComplete))
	mux.HandleFunc("POST /api/alarms/{habitId}/snooze", s.withAuth(s.handleAlarmSnooze))
	mux.HandleFunc("POST /api/alarms/{habitId}/dismiss", s.withAuth(s.handleAlarmDismiss))

	mux.HandleFunc("GET /api/connections", s.withAuth(s.handleListConnections))
	mux.HandleFunc("POST /api/connections", s.withAuth(s.handleCreateConnection))
	mux.HandleFunc("PUT /api/connections/{id}", s.withAuth(s.handleRespondConnection))
	mux.HandleFunc("DELETE /api/connections/{id}", s.withAuth(s.handleDeleteConnection))
	mux.HandleFunc("GET /api/partners", s.withAuth(s.handleListPartners))

	mux.HandleFunc("GET /api/users/search", s.withAuth(s.handleSearchUsers))

	mux.HandleFunc("GET /api/messages", s.withAuth(s.handleListMessages))
	mux.HandleFunc("POST /api/messages", s.withAuth(s.handleSendMessage))
	mux.HandleFunc("POST /api/messages/voice", s.withAuth(s.handleSendVoiceMessage))

	mux.HandleFunc("GET /api/stats", s.withAuth(s.handleStats))

	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(s.mediaDir))))

	return withLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Pool.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
