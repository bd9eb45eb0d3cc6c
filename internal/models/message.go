package models

import "time"

type Message struct {
	MessageID     string       `json:"id"`
	FromUserID    string       `json:"fromUserId"`
	ToUserID      string       `json:"toUserId"`
	Content       string       `json:"content"`
	VoiceURL      *string      `json:"voiceUrl,omitempty"`
	VoiceDuration *int         `json:"voiceDuration,omitempty"`
	ReplyToID     *string      `json:"replyToId,omitempty"`
	Read          bool         `json:"read"`
	CreatedAt     time.Time    `json:"createdAt"`
	FromUser      *UserSummary `json:"fromUser,omitempty"`
}

// IsVoice reports whether the message carries a voice recording.
func (m *Message) IsVoice() bool {
	return m.VoiceURL != nil
}
