package kitchen

import (
	"testing"
	"time"
)

func TestThresholdsAt(t *testing.T) {
	confirmed := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    Urgency
	}{
		{name: "justConfirmed", elapsed: 0, want: UrgencyNormal},
		{name: "underFive", elapsed: 4*time.Minute + 59*time.Second, want: UrgencyNormal},
		{name: "exactlyFive", elapsed: 5 * time.Minute, want: UrgencyWarning},
		{name: "seven", elapsed: 7 * time.Minute, want: UrgencyWarning},
		{name: "exactlyTen", elapsed: 10 * time.Minute, want: UrgencyWarning},
		{name: "overTen", elapsed: 10*time.Minute + time.Second, want: UrgencyCritical},
		{name: "clockSkew", elapsed: -time.Minute, want: UrgencyNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultThresholds.At(confirmed.Add(tt.elapsed), confirmed); got != tt.want {
				t.Errorf("At(+%s) = %s, want %s", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestThresholdsValid(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
		want bool
	}{
		{name: "default", th: DefaultThresholds, want: true},
		{name: "zero", th: Thresholds{}, want: false},
		{name: "inverted", th: Thresholds{WarningAfter: 10 * time.Minute, CriticalAfter: time.Minute}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.th.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
