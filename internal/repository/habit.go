package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/models"
)

type HabitRepository struct {
	db *database.DB
}

func NewHabitRepository(db *database.DB) *HabitRepository {
	return &HabitRepository{db: db}
}

const habitColumns = `habit_id, user_id, title, description, frequency,
	reminder_enabled, reminder_time, alarm_duration, archived, created_at`

func scanHabit(row pgx.Row) (*models.Habit, error) {
	habit := &models.Habit{}
	err := row.Scan(&habit.HabitID, &habit.UserID, &habit.Title, &habit.Description,
		&habit.Frequency, &habit.ReminderEnabled, &habit.ReminderTime,
		&habit.AlarmDuration, &habit.Archived, &habit.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return habit, nil
}

func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	if habit.HabitID == "" {
		habit.HabitID = uuid.NewString()
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO habits (habit_id, user_id, title, description, frequency,
		   reminder_enabled, reminder_time, alarm_duration, archived)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		habit.HabitID, habit.UserID, habit.Title, habit.Description, habit.Frequency,
		habit.ReminderEnabled, habit.ReminderTime, habit.AlarmDuration, habit.Archived,
	).Scan(&habit.CreatedAt)
}

func (r *HabitRepository) GetByID(ctx context.Context, habitID, userID string) (*models.Habit, error) {
	return scanHabit(r.db.Pool.QueryRow(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE habit_id = $1 AND user_id = $2`,
		habitID, userID,
	))
}

func (r *HabitRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Habit, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHabits(rows)
}

func (r *HabitRepository) Update(ctx context.Context, habit *models.Habit) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE habits SET title = $1, description = $2, frequency = $3,
		   reminder_enabled = $4, reminder_time = $5, alarm_duration = $6, archived = $7
		 WHERE habit_id = $8 AND user_id = $9`,
		habit.Title, habit.Description, habit.Frequency, habit.ReminderEnabled,
		habit.ReminderTime, habit.AlarmDuration, habit.Archived,
		habit.HabitID, habit.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *HabitRepository) Delete(ctx context.Context, habitID, userID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM habits WHERE habit_id = $1 AND user_id = $2`,
		habitID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDueAt returns every non-archived, reminder-enabled habit whose reminder
// time matches one of the given minute strings, across all users.
func (r *HabitRepository) GetDueAt(ctx context.Context, times []string) ([]*models.Habit, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+habitColumns+` FROM habits
		 WHERE reminder_enabled = TRUE AND archived = FALSE AND reminder_time = ANY($1)
		 ORDER BY created_at ASC`,
		times,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHabits(rows)
}

// GetDueAtForUser is the session-scoped variant of GetDueAt.
func (r *HabitRepository) GetDueAtForUser(ctx context.Context, userID string, times []string) ([]*models.Habit, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+habitColumns+` FROM habits
		 WHERE user_id = $1 AND reminder_enabled = TRUE AND archived = FALSE
		   AND reminder_time = ANY($2)
		 ORDER BY created_at ASC`,
		userID, times,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHabits(rows)
}

func (r *HabitRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = $1 AND archived = FALSE`,
		userID,
	).Scan(&count)
	return count, err
}

func collectHabits(rows pgx.Rows) ([]*models.Habit, error) {
	var habits []*models.Habit
	for rows.Next() {
		habit, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, habit)
	}
	return habits, rows.Err()
}
