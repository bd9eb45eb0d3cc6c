package server

import (
	"errors"
	"net/http"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/repository"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request, user *models.User) {
	conns, err := s.connections.ListForUser(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if conns == nil {
		conns = []*models.Connection{}
	}
	writeJSON(w, http.StatusOK, conns)
}

type connectionRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req connectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID required")
		return
	}
	if req.UserID == user.UserID {
		writeError(w, http.StatusBadRequest, "Cannot connect with yourself")
		return
	}

	target, err := s.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := s.connections.GetBetween(r.Context(), user.UserID, target.UserID); err == nil {
		writeError(w, http.StatusBadRequest, "Connection already exists")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	conn := &models.Connection{
		FromUserID: user.UserID,
		ToUserID:   target.UserID,
		Status:     models.ConnectionPending,
	}
	if err := s.connections.Create(r.Context(), conn); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

type connectionResponse struct {
	Action string `json:"action"` // "accept" or "reject"
}

func (s *Server) handleRespondConnection(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req connectionResponse
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status string
	switch req.Action {
	case "accept":
		status = models.ConnectionAccepted
	case "reject":
		status = models.ConnectionRejected
	default:
		writeError(w, http.StatusBadRequest, "Action must be accept or reject")
		return
	}

	conn, err := s.connections.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Connection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// Only the request's recipient can accept or reject it.
	if conn.ToUserID != user.UserID {
		writeError(w, http.StatusNotFound, "Connection not found")
		return
	}
	if conn.Status != models.ConnectionPending {
		writeError(w, http.StatusBadRequest, "Connection already responded to")
		return
	}

	if err := s.connections.SetStatus(r.Context(), conn.ConnectionID, status); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	conn.Status = status
	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request, user *models.User) {
	conn, err := s.connections.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Connection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if conn.FromUserID != user.UserID && conn.ToUserID != user.UserID {
		writeError(w, http.StatusNotFound, "Connection not found")
		return
	}
	if err := s.connections.Delete(r.Context(), conn.ConnectionID); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Connection removed"})
}

// handleListPartners returns the users on the far side of the caller's
// accepted connections.
func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request, user *models.User) {
	conns, err := s.connections.ListForUser(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	partners := []*models.UserSummary{}
	for _, conn := range conns {
		if conn.Status != models.ConnectionAccepted {
			continue
		}
		partners = append(partners, conn.Other(user.UserID))
	}
	writeJSON(w, http.StatusOK, partners)
}
