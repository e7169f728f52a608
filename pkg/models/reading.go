package models

import "time"

// ReadingInterval is the spacing of the inverter's archive samples, in seconds
const ReadingInterval = 300

// Reading is one five-minute sample relayed to PVOutput
type Reading struct {
	Timestamp int64   `json:"ts"`              // Unix seconds, UTC
	DayEnergy float64 `json:"dayEnergy"`       // Wh generated since UTC midnight
	Voltage   float64 `json:"inverterVoltage"` // 0 means no sample
}

// Time returns the reading timestamp in UTC
func (r Reading) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// ArchiveSeries maps an offset in seconds from the query start to a raw sample value
type ArchiveSeries map[int64]float64

// Midnight returns UTC midnight of the day containing t
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns a zero-energy reading at UTC midnight of the day containing t
func StartOfDay(t time.Time) Reading {
	return Reading{Timestamp: Midnight(t).Unix()}
}

// SubmittedReading is a reading PVOutput has accepted, as kept in the history log
type SubmittedReading struct {
	ID          int       `json:"id"`
	BatchID     string    `json:"batch_id"`
	Mode        string    `json:"mode"` // "normal" or "repost"
	Reading     Reading   `json:"reading"`
	SubmittedAt time.Time `json:"submitted_at"`
}
