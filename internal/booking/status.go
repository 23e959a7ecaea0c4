package booking

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/parse"
)

// MachineStatus tells whether the machine is busy right now. Recomputed on
// store changes rather than on a wall-clock timer, so it can go briefly
// stale around a slot boundary until the next change arrives.
type MachineStatus struct {
	Busy  bool   `json:"busy"`
	Slot  string `json:"slot,omitempty"`
	Party string `json:"party,omitempty"`
}

// MachineStatusNow derives the current machine status from today's bookings
// and the wall clock.
func (e *Engine) MachineStatusNow(ctx context.Context) (MachineStatus, error) {
	now := e.clk.Now().In(e.loc)
	slot, active := parse.SlotAt(e.slots, now)
	if !active {
		return MachineStatus{}, nil
	}

	today := now.Format(parse.DateLayout)
	var booking model.Booking
	err := e.db.WithContext(ctx).
		First(&booking, "date = ? AND slot = ? AND is_released = ?", today, slot, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MachineStatus{Slot: slot}, nil
	}
	if err != nil {
		return MachineStatus{}, fmt.Errorf("booking: load current slot booking: %w", err)
	}

	return MachineStatus{Busy: true, Slot: slot, Party: booking.Party}, nil
}
