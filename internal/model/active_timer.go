package model

import "time"

// ActiveTimer is the live record of a running wash program, at most one per
// party. Presence of the row means a timer is running; deletion is a manual
// stop. Notified flips false -> true exactly once, by the expiry sweep.
type ActiveTimer struct {
	Party           string    `gorm:"primaryKey;size:64" json:"party"`
	ProgramName     string    `gorm:"size:128;not null" json:"programName"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	StartTime       time.Time `gorm:"not null" json:"startTime"`
	EndTime         time.Time `gorm:"not null;index" json:"endTime"`
	StartedBy       string    `gorm:"size:36;not null" json:"startedBy"`
	Notified        bool      `gorm:"not null;default:false" json:"notified"`
}
