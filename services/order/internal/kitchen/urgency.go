package kitchen

import "time"

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// Thresholds bound the urgency bands. Elapsed time below WarningAfter is
// normal, above CriticalAfter is critical, anything in between is a warning.
type Thresholds struct {
	WarningAfter  time.Duration
	CriticalAfter time.Duration
}

var DefaultThresholds = Thresholds{
	WarningAfter:  5 * time.Minute,
	CriticalAfter: 10 * time.Minute,
}

// At classifies a ticket confirmed at confirmedAt.
func (t Thresholds) At(now, confirmedAt time.Time) Urgency {
	elapsed := now.Sub(confirmedAt)
	switch {
	case elapsed < t.WarningAfter:
		return UrgencyNormal
	case elapsed <= t.CriticalAfter:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

// Valid reports whether the bands are ordered.
func (t Thresholds) Valid() bool {
	return t.WarningAfter > 0 && t.CriticalAfter >= t.WarningAfter
}
