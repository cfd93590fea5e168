package domain

import "time"

const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// Preferences is the caller-level notification record. Saves overwrite the
// whole record; there is no field-level merge.
type Preferences struct {
	UpdateFreq   string `json:"updateFreq"`
	ReceiveEmail bool   `json:"receiveEmail"`
}

// DefaultPreferences applies when the backend has no record for the caller.
func DefaultPreferences() Preferences {
	return Preferences{UpdateFreq: FreqDaily, ReceiveEmail: true}
}

func ValidFreq(f string) bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// RefreshInterval maps the update frequency to the auto-refresh cadence.
func (p Preferences) RefreshInterval() time.Duration {
	switch p.UpdateFreq {
	case FreqWeekly:
		return 7 * 24 * time.Hour
	case FreqMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
