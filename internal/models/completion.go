package models

import "time"

type Completion struct {
	CompletionID string    `json:"id"`
	HabitID      string    `json:"habitId"`
	UserID       string    `json:"userId"`
	CompletedAt  time.Time `json:"completedAt"`
	Notes        string    `json:"notes,omitempty"`
}
