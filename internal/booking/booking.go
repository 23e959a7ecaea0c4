package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/karma"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/parse"
)

// Policy rejections surfaced to the user. The API layer maps these to 4xx
// responses; anything else is a store failure and becomes a 500.
var (
	ErrMaintenance  = errors.New("booking is disabled while the system is under maintenance")
	ErrSlotTaken    = errors.New("this slot is already booked")
	ErrDuplicateDay = errors.New("your party already holds a booking on this date")
	ErrNotFound     = errors.New("booking not found")
	ErrNotOwner     = errors.New("this booking belongs to another party")
)

// EligibilityError carries the karma engine's human-readable rejection.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string { return e.Reason }

// Engine performs booking creation, cancellation and availability
// computation. All mutations run inside a single transaction together with
// their karma side effects.
type Engine struct {
	db     *gorm.DB
	karma  *karma.Engine
	slots  *config.SlotsConfig
	policy *config.KarmaConfig
	loc    *time.Location
	clk    clock.Clock
	hub    *Hub
}

// New creates a booking engine sharing the karma engine's policy config.
func New(db *gorm.DB, cfg *config.Config, k *karma.Engine, clk clock.Clock) *Engine {
	return &Engine{
		db:     db,
		karma:  k,
		slots:  &cfg.Slots,
		policy: &cfg.Karma,
		loc:    cfg.Slots.Location(),
		clk:    clk,
		hub:    NewHub(),
	}
}

// Hub exposes the change-notification hub driving live status streams.
func (e *Engine) Hub() *Hub { return e.hub }

// HasBookingOn reports whether party holds a non-released booking on the
// given date, in either slot. Takes an explicit handle so the swap engine
// can issue it as a transactional read.
func HasBookingOn(tx *gorm.DB, date, party string) (bool, error) {
	var count int64
	err := tx.Model(&model.Booking{}).
		Where("date = ? AND party = ? AND is_released = ?", date, party, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("booking: duplicate check for %s on %s: %w", party, date, err)
	}
	return count > 0, nil
}

// Create books a slot for a party. Maintenance gate, slot availability, the
// one-per-day rule, karma eligibility, the booking write and the karma debit
// all run in one transaction, so no partial debit can survive a failure.
func (e *Engine) Create(ctx context.Context, date, slot, party, userID string) error {
	day, err := parse.Date(date, e.loc)
	if err != nil {
		return err
	}
	if slot, err = parse.Slot(slot); err != nil {
		return err
	}

	if err := e.karma.Touch(ctx, party); err != nil {
		return err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := loadSettings(tx)
		if err != nil {
			return err
		}
		if settings.SystemStatus == model.SystemMaintenance {
			return ErrMaintenance
		}

		var existing []model.Booking
		if err := tx.Where("date = ?", date).Find(&existing).Error; err != nil {
			return fmt.Errorf("booking: load bookings for %s: %w", date, err)
		}

		var slotBooking *model.Booking
		for i := range existing {
			b := &existing[i]
			if b.Slot == slot {
				slotBooking = b
			}
			if !b.IsReleased && b.Party == party {
				return ErrDuplicateDay
			}
		}
		if slotBooking != nil && !slotBooking.IsReleased {
			return ErrSlotTaken
		}

		eligibility, err := e.karma.WithTx(tx).CheckEligibility(ctx, date, party)
		if err != nil {
			return err
		}
		if !eligibility.Allowed {
			return &EligibilityError{Reason: eligibility.Reason}
		}

		if slotBooking != nil {
			// Take over a spontaneously released slot in place.
			if err := tx.Model(slotBooking).Updates(map[string]any{
				"party":          party,
				"user_id":        userID,
				"is_released":    false,
				"check_in_time":  nil,
				"check_out_time": nil,
			}).Error; err != nil {
				return fmt.Errorf("booking: take over released slot: %w", err)
			}
		} else {
			row := model.Booking{
				ID:     uuid.NewString(),
				Date:   day.Format(parse.DateLayout),
				Slot:   slot,
				Party:  party,
				UserID: userID,
			}
			// The (date, slot) unique index rejects a concurrent winner here.
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("booking: create: %w", err)
			}
		}

		return e.karma.WithTx(tx).Adjust(ctx, party, eligibility.Cost, "booking")
	})
	if err != nil {
		return err
	}

	e.hub.Broadcast()
	return nil
}

// Cancel deletes the party's booking and applies the early-cancel bonus or
// the late-cancel penalty, atomically.
func (e *Engine) Cancel(ctx context.Context, date, slot, party string) error {
	day, err := parse.Date(date, e.loc)
	if err != nil {
		return err
	}
	if slot, err = parse.Slot(slot); err != nil {
		return err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := findSlotBooking(tx, date, slot)
		if err != nil {
			return err
		}
		if booking.Party != party {
			return ErrNotOwner
		}

		if err := tx.Delete(booking).Error; err != nil {
			return fmt.Errorf("booking: delete: %w", err)
		}

		slotStart, _ := parse.Window(e.slots, day, slot)
		delta := e.policy.LateCancelPenalty
		reason := "late cancellation"
		if e.clk.Now().In(e.loc).Before(slotStart.Add(-time.Duration(e.policy.EarlyCancelHours) * time.Hour)) {
			delta = e.policy.EarlyCancelBonus
			reason = "early cancellation"
		}
		return e.karma.WithTx(tx).Adjust(ctx, party, delta, reason)
	})
	if err != nil {
		return err
	}

	e.hub.Broadcast()
	return nil
}

// Release marks the party's booking as spontaneously available without
// giving up the reservation row.
func (e *Engine) Release(ctx context.Context, date, slot, party string) error {
	if _, err := parse.Slot(slot); err != nil {
		return err
	}
	err := e.mutateOwn(ctx, date, slot, party, map[string]any{"is_released": true})
	if err != nil {
		return err
	}
	e.hub.Broadcast()
	return nil
}

// CheckIn stamps the start of actual machine usage within the slot.
func (e *Engine) CheckIn(ctx context.Context, date, slot, party string) error {
	now := e.clk.Now()
	err := e.mutateOwn(ctx, date, slot, party, map[string]any{"check_in_time": &now})
	if err != nil {
		return err
	}
	e.hub.Broadcast()
	return nil
}

// CheckOut stamps the end of machine usage.
func (e *Engine) CheckOut(ctx context.Context, date, slot, party string) error {
	now := e.clk.Now()
	err := e.mutateOwn(ctx, date, slot, party, map[string]any{"check_out_time": &now})
	if err != nil {
		return err
	}
	e.hub.Broadcast()
	return nil
}

func (e *Engine) mutateOwn(ctx context.Context, date, slot, party string, updates map[string]any) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := findSlotBooking(tx, date, slot)
		if err != nil {
			return err
		}
		if booking.Party != party {
			return ErrNotOwner
		}
		return tx.Model(booking).Updates(updates).Error
	})
}

func findSlotBooking(tx *gorm.DB, date, slot string) (*model.Booking, error) {
	var booking model.Booking
	err := tx.First(&booking, "date = ? AND slot = ?", date, slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load %s/%s: %w", date, slot, err)
	}
	return &booking, nil
}

func loadSettings(tx *gorm.DB) (*model.AppSettings, error) {
	var settings model.AppSettings
	err := tx.First(&settings, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.AppSettings{ID: 1, SystemStatus: model.SystemOK}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load settings: %w", err)
	}
	return &settings, nil
}
