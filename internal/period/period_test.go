package period

import (
	"testing"
	"time"

	"github.com/Joniyal/tudum/internal/models"
)

func TestStart(t *testing.T) {
	// 2026-09-16 is a Wednesday.
	now := time.Date(2026, 9, 16, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name      string
		frequency string
		want      time.Time
	}{
		{
			name:      "daily is midnight today",
			frequency: models.FrequencyDaily,
			want:      time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekly is Monday midnight",
			frequency: models.FrequencyWeekly,
			want:      time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly is first of month",
			frequency: models.FrequencyMonthly,
			want:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "unknown frequency falls back to daily",
			frequency: "HOURLY",
			want:      time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Start(tt.frequency, now)
			if !got.Equal(tt.want) {
				t.Errorf("Start(%s) = %v, want %v", tt.frequency, got, tt.want)
			}
		})
	}
}

func TestStart_OnBoundary(t *testing.T) {
	// Exactly Monday midnight: the current week starts now, not last week.
	now := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	got := Start(models.FrequencyWeekly, now)
	if !got.Equal(now) {
		t.Errorf("Start(weekly) at Monday midnight = %v, want %v", got, now)
	}
}

func TestNext(t *testing.T) {
	now := time.Date(2026, 9, 16, 14, 30, 0, 0, time.UTC)

	if got, want := Next(models.FrequencyDaily, now), time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next(daily) = %v, want %v", got, want)
	}
	if got, want := Next(models.FrequencyWeekly, now), time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next(weekly) = %v, want %v", got, want)
	}
	if got, want := Next(models.FrequencyMonthly, now), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next(monthly) = %v, want %v", got, want)
	}
}
