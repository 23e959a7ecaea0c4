package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/model"
)

var (
	ErrNoParty         = errors.New("a party is required to start a timer")
	ErrInvalidDuration = errors.New("program duration must be positive")
)

// Engine owns the per-party active timer records. At most one timer exists
// per party; starting a new one silently replaces a running one.
type Engine struct {
	db  *gorm.DB
	clk clock.Clock
}

func New(db *gorm.DB, clk clock.Clock) *Engine {
	return &Engine{db: db, clk: clk}
}

// Start upserts the party's timer. EndTime is derived from the program
// duration; Notified resets to false so the new instance gets its own
// completion push.
func (e *Engine) Start(ctx context.Context, party, programName string, durationMinutes int, userID string) (*model.ActiveTimer, error) {
	if party == "" {
		return nil, ErrNoParty
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	now := e.clk.Now()
	t := model.ActiveTimer{
		Party:           party,
		ProgramName:     programName,
		DurationMinutes: durationMinutes,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(durationMinutes) * time.Minute),
		StartedBy:       userID,
		Notified:        false,
	}
	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "party"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"program_name", "duration_minutes", "start_time", "end_time", "started_by", "notified",
		}),
	}).Create(&t).Error
	if err != nil {
		return nil, fmt.Errorf("timer: start for %s: %w", party, err)
	}
	return &t, nil
}

// Stop deletes the party's timer. Stopping a party without a timer is a
// no-op, matching the manual-stop button being always clickable.
func (e *Engine) Stop(ctx context.Context, party string) error {
	if err := e.db.WithContext(ctx).Delete(&model.ActiveTimer{}, "party = ?", party).Error; err != nil {
		return fmt.Errorf("timer: stop for %s: %w", party, err)
	}
	return nil
}

// Get returns the party's running timer, or nil when none exists.
func (e *Engine) Get(ctx context.Context, party string) (*model.ActiveTimer, error) {
	var t model.ActiveTimer
	err := e.db.WithContext(ctx).First(&t, "party = ?", party).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("timer: load for %s: %w", party, err)
	}
	return &t, nil
}
