package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (user_id, email, username, name, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		user.UserID, user.Email, user.Username, user.Name, user.PasswordHash,
	).Scan(&user.CreatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return r.getOne(ctx,
		`SELECT user_id, email, username, name, password_hash, telegram_chat_id, created_at
		 FROM users WHERE user_id = $1`, userID)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx,
		`SELECT user_id, email, username, name, password_hash, telegram_chat_id, created_at
		 FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&user.UserID, &user.Email, &user.Username, &user.Name,
		&user.PasswordHash, &user.TelegramChatID, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name string, telegramChatID *int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET name = $1, telegram_chat_id = $2 WHERE user_id = $3`,
		name, telegramChatID, userID,
	)
	return err
}

// Search matches username, name, or email case-insensitively, excluding the
// searching user.
func (r *UserRepository) Search(ctx context.Context, userID, query string, limit int) ([]models.UserSummary, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT user_id, username, name, email FROM users
		 WHERE user_id <> $1 AND (username ILIKE $2 OR name ILIKE $2 OR email ILIKE $2)
		 ORDER BY username ASC LIMIT $3`,
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.UserID, &u.Username, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TelegramChatID returns the linked Telegram chat for a user, nil if unlinked.
func (r *UserRepository) TelegramChatID(ctx context.Context, userID string) (*int64, error) {
	var chatID *int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT telegram_chat_id FROM users WHERE user_id = $1`, userID,
	).Scan(&chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return chatID, err
}

// UserIDByChatID resolves a Telegram chat back to the owning user.
func (r *UserRepository) UserIDByChatID(ctx context.Context, chatID int64) (string, error) {
	var userID string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT user_id FROM users WHERE telegram_chat_id = $1`, chatID,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return userID, err
}
