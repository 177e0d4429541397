package domain

import "time"

// KickSessionState is the state of the kick counter state machine
type KickSessionState string

const (
	KickSessionIdle     KickSessionState = "idle"
	KickSessionCounting KickSessionState = "counting"
)

// KickRecord is an immutable, completed kick-counting session
type KickRecord struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"` // UTC
	Count     int       `json:"count"`
	Duration  int       `json:"duration"`  // minutes, always >= 1
	StartTime string    `json:"startTime"` // local wall-clock time, HH:MM
}

// KickSessionStatus is the open kick-counting session, persisted so a restart does not lose it
type KickSessionStatus struct {
	State     KickSessionState `json:"state"`
	Count     int              `json:"count"`
	StartedAt time.Time        `json:"started_at"`
}

// Active reports whether taps are being counted
func (s KickSessionStatus) Active() bool {
	return s.State == KickSessionCounting
}

// KickDurationMinutes returns the session length in whole minutes, round-half-up, floored to 1
func KickDurationMinutes(start, end time.Time) int {
	minutes := WholeMinutes(end.Sub(start))
	if minutes < 1 {
		return 1
	}
	return minutes
}
