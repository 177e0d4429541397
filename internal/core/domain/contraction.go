package domain

import "time"

// ImminentLaborFrequencyMin is the largest gap between contraction starts, in minutes,
// that signals imminent labor
const ImminentLaborFrequencyMin = 5

// UnixMillis is an instant serialized as epoch milliseconds
type UnixMillis int64

// MillisOf converts t to UnixMillis
func MillisOf(t time.Time) UnixMillis {
	return UnixMillis(t.UnixMilli())
}

// Time converts back to a time.Time
func (m UnixMillis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

// ContractionRecord is an immutable start->stop cycle of the contraction timer.
// FrequencyMin is the gap between this start and the previous record's start; 0 means no prior data.
type ContractionRecord struct {
	ID           string     `json:"id"`
	StartTime    UnixMillis `json:"startTime"`
	EndTime      UnixMillis `json:"endTime"`
	DurationSec  int        `json:"durationSec"`
	FrequencyMin int        `json:"frequencyMin"`
}

// ActiveContraction is the open contraction, persisted so a restart does not lose it
type ActiveContraction struct {
	StartedAt UnixMillis `json:"startTime"`
}

// ContractionDurationSec returns the contraction length in whole seconds, round-half-up, >= 0
func ContractionDurationSec(start, end time.Time) int {
	return WholeSeconds(end.Sub(start))
}

// ContractionFrequencyMin returns the gap between start and the most recent previous start
// in whole minutes, or 0 when history (most-recent-first) is empty
func ContractionFrequencyMin(start time.Time, history []ContractionRecord) int {
	if len(history) == 0 {
		return 0
	}
	return WholeMinutes(start.Sub(history[0].StartTime.Time()))
}

// IsImminentLabor reports whether at least two contractions exist and the most recent
// frequency is in (0, ImminentLaborFrequencyMin]. History is most-recent-first.
func IsImminentLabor(history []ContractionRecord) bool {
	if len(history) < 2 {
		return false
	}
	freq := history[0].FrequencyMin
	return freq > 0 && freq <= ImminentLaborFrequencyMin
}
