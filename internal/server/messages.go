package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/Joniyal/tudum/internal/models"
)

const maxMessageLength = 1000

// maxVoiceUpload caps a voice recording upload at 10 MB.
const maxVoiceUpload = 10 << 20

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, user *models.User) {
	partnerID := r.URL.Query().Get("partnerId")
	if partnerID == "" {
		writeError(w, http.StatusBadRequest, "partnerId required")
		return
	}
	if ok := s.requirePartner(w, r, user.UserID, partnerID); !ok {
		return
	}

	messages, err := s.messages.Conversation(r.Context(), user.UserID, partnerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	// Opening the conversation reads it.
	if err := s.messages.MarkRead(r.Context(), user.UserID, partnerID); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	ToUserID  string  `json:"toUserId"`
	Content   string  `json:"content"`
	ReplyToID *string `json:"replyToId"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ToUserID == "" {
		writeError(w, http.StatusBadRequest, "toUserId required")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Message content required")
		return
	}
	if len(req.Content) > maxMessageLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
		return
	}
	if ok := s.requirePartner(w, r, user.UserID, req.ToUserID); !ok {
		return
	}

	message := &models.Message{
		FromUserID: user.UserID,
		ToUserID:   req.ToUserID,
		Content:    req.Content,
		ReplyToID:  req.ReplyToID,
	}
	if err := s.messages.Create(r.Context(), message); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	sender := user.Summary()
	message.FromUser = &sender
	writeJSON(w, http.StatusCreated, message)
}

// handleSendVoiceMessage accepts a multipart upload with an "audio" part and
// stores the recording under the media directory.
func (s *Server) handleSendVoiceMessage(w http.ResponseWriter, r *http.Request, user *models.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVoiceUpload)
	if err := r.ParseMultipartForm(maxVoiceUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	toUserID := r.FormValue("toUserId")
	if toUserID == "" {
		writeError(w, http.StatusBadRequest, "toUserId required")
		return
	}
	if ok := s.requirePartner(w, r, user.UserID, toUserID); !ok {
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file required")
		return
	}
	defer file.Close()

	name := uuid.NewString() + voiceExtension(header.Header.Get("Content-Type"))
	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	dst, err := os.Create(filepath.Join(s.mediaDir, name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	voiceURL := "/media/" + name
	message := &models.Message{
		FromUserID: user.UserID,
		ToUserID:   toUserID,
		Content:    "[voice message]",
		VoiceURL:   &voiceURL,
	}
	if secs, err := strconv.Atoi(r.FormValue("duration")); err == nil && secs > 0 {
		message.VoiceDuration = &secs
	}
	if err := s.messages.Create(r.Context(), message); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	sender := user.Summary()
	message.FromUser = &sender
	writeJSON(w, http.StatusCreated, message)
}

// requirePartner writes an error and returns false unless the two users have
// an accepted connection.
func (s *Server) requirePartner(w http.ResponseWriter, r *http.Request, userID, partnerID string) bool {
	ok, err := s.connections.ArePartners(r.Context(), userID, partnerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "You can only message your partners")
		return false
	}
	return true
}

func voiceExtension(contentType string) string {
	switch contentType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	default:
		return ".webm"
	}
}
