package components

import "testing"

func TestAcceptanceRatio(t *testing.T) {
	tests := []struct {
		name string
		walk Walk
		want float64
	}{
		{"no moves", Walk{}, 0},
		{"all accepted", Walk{Accepted: 4}, 1},
		{"mixed", Walk{Accepted: 3, Rejected: 1}, 0.75},
		{"all rejected", Walk{Rejected: 9}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.walk.AcceptanceRatio(); got != tt.want {
				t.Errorf("AcceptanceRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}
