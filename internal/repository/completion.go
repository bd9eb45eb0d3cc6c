package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/models"
)

type CompletionRepository struct {
	db *database.DB
}

func NewCompletionRepository(db *database.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Create(ctx context.Context, completion *models.Completion) error {
	if completion.CompletionID == "" {
		completion.CompletionID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO completions (completion_id, habit_id, user_id, completed_at, notes)
		 VALUES ($1, $2, $3, $4, $5)`,
		completion.CompletionID, completion.HabitID, completion.UserID,
		completion.CompletedAt, completion.Notes,
	)
	return err
}

func (r *CompletionRepository) GetByID(ctx context.Context, completionID string) (*models.Completion, error) {
	completion := &models.Completion{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT completion_id, habit_id, user_id, completed_at, notes
		 FROM completions WHERE completion_id = $1`,
		completionID,
	).Scan(&completion.CompletionID, &completion.HabitID, &completion.UserID,
		&completion.CompletedAt, &completion.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return completion, nil
}

func (r *CompletionRepository) Delete(ctx context.Context, completionID, userID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM completions WHERE completion_id = $1 AND user_id = $2`,
		completionID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsSince reports whether the habit has a completion at or after the
// given instant. The reminder source uses this as its suppression condition.
func (r *CompletionRepository) ExistsSince(ctx context.Context, habitID, userID string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM completions
		   WHERE habit_id = $1 AND user_id = $2 AND completed_at >= $3
		 )`,
		habitID, userID, since,
	).Scan(&exists)
	return exists, err
}

// ListRecentByHabit returns the newest completions for a habit, newest first.
func (r *CompletionRepository) ListRecentByHabit(ctx context.Context, habitID string, limit int) ([]*models.Completion, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT completion_id, habit_id, user_id, completed_at, notes
		 FROM completions WHERE habit_id = $1
		 ORDER BY completed_at DESC LIMIT $2`,
		habitID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []*models.Completion
	for rows.Next() {
		c := &models.Completion{}
		if err := rows.Scan(&c.CompletionID, &c.HabitID, &c.UserID, &c.CompletedAt, &c.Notes); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

func (r *CompletionRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM completions WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}

type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// CountByDay groups a user's completions by calendar day since the given
// instant, oldest first.
func (r *CompletionRepository) CountByDay(ctx context.Context, userID string, since time.Time) ([]DayCount, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT TO_CHAR(completed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM completions WHERE user_id = $1 AND completed_at >= $2
		 GROUP BY day ORDER BY day ASC`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
