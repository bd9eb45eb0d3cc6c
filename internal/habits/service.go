// Package habits owns habit-completion semantics: one completion per habit
// per period, regardless of which surface (HTTP, web alarm, Telegram alarm)
// asked for it.
package habits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Joniyal/tudum/internal/models"
	"github.com/Joniyal/tudum/internal/period"
	"github.com/Joniyal/tudum/internal/repository"
)

// ErrAlreadyCompleted is returned when a completion already exists inside
// the habit's current period. Duplicate "complete" clicks from concurrent
// surfaces hit this rather than creating duplicate rows.
var ErrAlreadyCompleted = errors.New("habit already completed for this period")

type Service struct {
	habits      *repository.HabitRepository
	completions *repository.CompletionRepository
}

func NewService(habits *repository.HabitRepository, completions *repository.CompletionRepository) *Service {
	return &Service{habits: habits, completions: completions}
}

// CreateCompletion records a completion for the user's habit at the given
// instant, rejecting duplicates within the same period.
func (s *Service) CreateCompletion(ctx context.Context, habitID, userID string, completedAt time.Time, notes string) (*models.Completion, error) {
	habit, err := s.habits.GetByID(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	since := period.Start(habit.Frequency, completedAt)
	exists, err := s.completions.ExistsSince(ctx, habitID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing completion: %w", err)
	}
	if exists {
		return nil, ErrAlreadyCompleted
	}

	completion := &models.Completion{
		HabitID:     habitID,
		UserID:      userID,
		CompletedAt: completedAt,
		Notes:       notes,
	}
	if err := s.completions.Create(ctx, completion); err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}
	return completion, nil
}

// Complete satisfies the alarm tracker's Completer interface.
func (s *Service) Complete(ctx context.Context, habitID, userID string, completedAt time.Time) error {
	_, err := s.CreateCompletion(ctx, habitID, userID, completedAt, "")
	return err
}

// RemoveCompletion deletes one of the user's completion records.
func (s *Service) RemoveCompletion(ctx context.Context, completionID, userID string) error {
	return s.completions.Delete(ctx, completionID, userID)
}
