package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/models"
)

type MessageRepository struct {
	db *database.DB
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.MessageID == "" {
		message.MessageID = uuid.NewString()
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO messages (message_id, from_user_id, to_user_id, content,
		   voice_url, voice_duration, reply_to_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		message.MessageID, message.FromUserID, message.ToUserID, message.Content,
		message.VoiceURL, message.VoiceDuration, message.ReplyToID,
	).Scan(&message.CreatedAt)
}

// Conversation returns every message between the two users, oldest first,
// with the sender summary attached.
func (r *MessageRepository) Conversation(ctx context.Context, userID, partnerID string) ([]*models.Message, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT m.message_id, m.from_user_id, m.to_user_id, m.content,
		        m.voice_url, m.voice_duration, m.reply_to_id, m.read, m.created_at,
		        u.username, u.name, u.email
		 FROM messages m
		 JOIN users u ON u.user_id = m.from_user_id
		 WHERE (m.from_user_id = $1 AND m.to_user_id = $2)
		    OR (m.from_user_id = $2 AND m.to_user_id = $1)
		 ORDER BY m.created_at ASC`,
		userID, partnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{FromUser: &models.UserSummary{}}
		if err := rows.Scan(
			&m.MessageID, &m.FromUserID, &m.ToUserID, &m.Content,
			&m.VoiceURL, &m.VoiceDuration, &m.ReplyToID, &m.Read, &m.CreatedAt,
			&m.FromUser.Username, &m.FromUser.Name, &m.FromUser.Email,
		); err != nil {
			return nil, err
		}
		m.FromUser.UserID = m.FromUserID
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRead flags every unread message from the partner to the user as read.
func (r *MessageRepository) MarkRead(ctx context.Context, userID, partnerID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE messages SET read = TRUE
		 WHERE from_user_id = $1 AND to_user_id = $2 AND read = FALSE`,
		partnerID, userID,
	)
	return err
}

func (r *MessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE to_user_id = $1 AND read = FALSE`,
		userID,
	).Scan(&count)
	return count, err
}
