package server

import "testing"

func TestGenerateUsername(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@example.com", "alice"},
		{"Alice.Smith@example.com", "alice_smith"},
		{"bob+habits@example.com", "bob_habits"},
		{"under_score-dash@example.com", "under_score-dash"},
		{"@example.com", "user"},
		{"NoAtSign", "noatsign"},
	}
	for _, tt := range tests {
		if got := generateUsername(tt.email); got != tt.want {
			t.Errorf("generateUsername(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
