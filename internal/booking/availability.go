package booking

import (
	"context"
	"fmt"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/parse"
)

// SlotStatus is the availability state of one slot for one viewer.
type SlotStatus string

const (
	StatusAvailable   SlotStatus = "available"
	StatusSpontaneous SlotStatus = "available-spontaneous"
	StatusMine        SlotStatus = "booked-by-me"
	StatusOther       SlotStatus = "booked-by-other"
	StatusDuplicate   SlotStatus = "disabled-duplicate"
	StatusMaintenance SlotStatus = "maintenance"
)

// SlotView is what the UI renders for a single slot.
type SlotView struct {
	Status    SlotStatus `json:"status"`
	CheckedIn bool       `json:"checkedIn,omitempty"`
	Party     string     `json:"party,omitempty"`
	BookingID string     `json:"bookingId,omitempty"`
}

// Availability computes the per-slot status of a date as seen by
// viewerParty. Maintenance mode disables both slots outright; a party that
// already holds a non-released booking on the date sees every bookable slot,
// released ones included, downgraded to disabled-duplicate. That mirrors
// Create, which refuses a second non-released booking per party per date
// even via a released-slot takeover.
func (e *Engine) Availability(ctx context.Context, date, viewerParty string) (map[string]SlotView, error) {
	if _, err := parse.Date(date, e.loc); err != nil {
		return nil, err
	}

	settings, err := loadSettings(e.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if settings.SystemStatus == model.SystemMaintenance {
		return map[string]SlotView{
			model.SlotMorning: {Status: StatusMaintenance},
			model.SlotEvening: {Status: StatusMaintenance},
		}, nil
	}

	var bookings []model.Booking
	if err := e.db.WithContext(ctx).Where("date = ?", date).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("booking: load bookings for %s: %w", date, err)
	}

	bySlot := make(map[string]*model.Booking, len(bookings))
	viewerBooked := false
	for i := range bookings {
		b := &bookings[i]
		bySlot[b.Slot] = b
		if !b.IsReleased && b.Party == viewerParty {
			viewerBooked = true
		}
	}

	views := make(map[string]SlotView, 2)
	for _, slot := range []string{model.SlotMorning, model.SlotEvening} {
		b, ok := bySlot[slot]
		switch {
		case !ok:
			views[slot] = SlotView{Status: StatusAvailable}
		case b.IsReleased:
			views[slot] = SlotView{Status: StatusSpontaneous}
		case b.Party == viewerParty:
			views[slot] = SlotView{
				Status:    StatusMine,
				CheckedIn: b.CheckInTime != nil && b.CheckOutTime == nil,
				Party:     b.Party,
				BookingID: b.ID,
			}
		default:
			views[slot] = SlotView{Status: StatusOther, Party: b.Party, BookingID: b.ID}
		}
	}

	if viewerBooked {
		for slot, view := range views {
			if view.Status == StatusAvailable || view.Status == StatusSpontaneous {
				views[slot] = SlotView{Status: StatusDuplicate}
			}
		}
	}

	return views, nil
}
