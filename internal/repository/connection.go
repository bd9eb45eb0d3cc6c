package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/models"
)

type ConnectionRepository struct {
	db *database.DB
}

func NewConnectionRepository(db *database.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) Create(ctx context.Context, conn *models.Connection) error {
	if conn.ConnectionID == "" {
		conn.ConnectionID = uuid.NewString()
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO connections (connection_id, from_user_id, to_user_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		conn.ConnectionID, conn.FromUserID, conn.ToUserID, conn.Status,
	).Scan(&conn.CreatedAt)
}

func (r *ConnectionRepository) GetByID(ctx context.Context, connectionID string) (*models.Connection, error) {
	conn := &models.Connection{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT connection_id, from_user_id, to_user_id, status, created_at
		 FROM connections WHERE connection_id = $1`,
		connectionID,
	).Scan(&conn.ConnectionID, &conn.FromUserID, &conn.ToUserID, &conn.Status, &conn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// GetBetween finds a connection in either direction between two users.
func (r *ConnectionRepository) GetBetween(ctx context.Context, userA, userB string) (*models.Connection, error) {
	conn := &models.Connection{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT connection_id, from_user_id, to_user_id, status, created_at
		 FROM connections
		 WHERE (from_user_id = $1 AND to_user_id = $2)
		    OR (from_user_id = $2 AND to_user_id = $1)`,
		userA, userB,
	).Scan(&conn.ConnectionID, &conn.FromUserID, &conn.ToUserID, &conn.Status, &conn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ListForUser returns every connection touching the user, with both user
// summaries attached, newest first.
func (r *ConnectionRepository) ListForUser(ctx context.Context, userID string) ([]*models.Connection, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT c.connection_id, c.from_user_id, c.to_user_id, c.status, c.created_at,
		        f.username, f.name, f.email,
		        t.username, t.name, t.email
		 FROM connections c
		 JOIN users f ON f.user_id = c.from_user_id
		 JOIN users t ON t.user_id = c.to_user_id
		 WHERE c.from_user_id = $1 OR c.to_user_id = $1
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn := &models.Connection{
			FromUser: &models.UserSummary{},
			ToUser:   &models.UserSummary{},
		}
		if err := rows.Scan(
			&conn.ConnectionID, &conn.FromUserID, &conn.ToUserID, &conn.Status, &conn.CreatedAt,
			&conn.FromUser.Username, &conn.FromUser.Name, &conn.FromUser.Email,
			&conn.ToUser.Username, &conn.ToUser.Name, &conn.ToUser.Email,
		); err != nil {
			return nil, err
		}
		conn.FromUser.UserID = conn.FromUserID
		conn.ToUser.UserID = conn.ToUserID
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepository) SetStatus(ctx context.Context, connectionID, status string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE connections SET status = $1 WHERE connection_id = $2`,
		status, connectionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConnectionRepository) Delete(ctx context.Context, connectionID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM connections WHERE connection_id = $1`, connectionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ArePartners reports whether an accepted connection exists between the two
// users in either direction.
func (r *ConnectionRepository) ArePartners(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM connections
		   WHERE status = $1
		     AND ((from_user_id = $2 AND to_user_id = $3)
		       OR (from_user_id = $3 AND to_user_id = $2))
		 )`,
		models.ConnectionAccepted, userA, userB,
	).Scan(&exists)
	return exists, err
}
