package swap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/booking"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/karma"
	"laundry-booking-backend/internal/model"
)

var (
	// ErrRequestExists rejects a second pending request for the same
	// (booking, requester) pair.
	ErrRequestExists = errors.New("you already have a pending request for this slot")
	// ErrRequestGone means the swap request vanished before the decision.
	ErrRequestGone = errors.New("this request no longer exists")
	// ErrRequestDecided rejects accepting a request that has already been
	// answered. The row outlives the decision so the requester can see the
	// outcome, but the decision is final.
	ErrRequestDecided = errors.New("this request has already been decided")
	// ErrBookingGone means the target booking vanished; the request is
	// deleted as part of reporting this.
	ErrBookingGone = errors.New("the original booking no longer exists")
	// ErrRequesterBusy means the requester meanwhile booked the target date
	// themselves; the request is deleted as part of reporting this.
	ErrRequesterBusy = errors.New("the requesting party already holds a booking on that date")
	// ErrOwnBooking rejects requesting a swap against your own slot.
	ErrOwnBooking = errors.New("you cannot request your own slot")
	// ErrNotTarget rejects accept/reject by a party the request is not
	// addressed to.
	ErrNotTarget = errors.New("this request is not addressed to your party")
)

// Engine implements the swap negotiation protocol.
type Engine struct {
	db    *gorm.DB
	karma *karma.Engine
	bonus int
	clk   clock.Clock
	hub   *booking.Hub
}

// New creates a swap engine. The hub is the booking engine's, so accepted
// swaps wake the same live status streams.
func New(db *gorm.DB, cfg *config.Config, k *karma.Engine, clk clock.Clock, hub *booking.Hub) *Engine {
	return &Engine{db: db, karma: k, bonus: cfg.Karma.SwapBonus, clk: clk, hub: hub}
}

// Request files a swap request against a booked slot.
func (e *Engine) Request(ctx context.Context, bookingID, requesterParty, requesterUserID string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target model.Booking
		err := tx.First(&target, "id = ?", bookingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingGone
		}
		if err != nil {
			return fmt.Errorf("swap: load target booking: %w", err)
		}
		if target.Party == requesterParty {
			return ErrOwnBooking
		}

		var pending int64
		err = tx.Model(&model.SwapRequest{}).
			Where("booking_id = ? AND requester_party = ? AND (status = ? OR status = ?)",
				bookingID, requesterParty, "", model.SwapPending).
			Count(&pending).Error
		if err != nil {
			return fmt.Errorf("swap: pending lookup: %w", err)
		}
		if pending > 0 {
			return ErrRequestExists
		}

		req = model.SwapRequest{
			ID:              uuid.NewString(),
			BookingID:       target.ID,
			TargetDate:      target.Date,
			TargetSlot:      target.Slot,
			TargetParty:     target.Party,
			RequesterParty:  requesterParty,
			RequesterUserID: requesterUserID,
			RequestedAt:     e.clk.Now(),
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Accept transfers the booked slot to the requester. One transaction covers
// loading the request and the booking, the requester's duplicate check, the
// in-place ownership transfer and the status flip — the duplicate check is a
// transactional read so it participates in conflict detection. A request
// whose target vanished or whose requester meanwhile booked the date is
// deleted in the same transaction (self-healing) and the policy error is
// returned after commit.
func (e *Engine) Accept(ctx context.Context, requestID, accepterParty, accepterUserID string) error {
	var healed error
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.SwapRequest
		err := tx.First(&req, "id = ?", requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestGone
		}
		if err != nil {
			return fmt.Errorf("swap: load request: %w", err)
		}
		if req.TargetParty != accepterParty {
			return ErrNotTarget
		}
		if !req.Pending() {
			return ErrRequestDecided
		}

		var target model.Booking
		err = tx.First(&target, "id = ?", req.BookingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Delete(&req).Error; err != nil {
				return fmt.Errorf("swap: drop orphaned request: %w", err)
			}
			healed = ErrBookingGone
			return nil
		}
		if err != nil {
			return fmt.Errorf("swap: load target booking: %w", err)
		}

		busy, err := booking.HasBookingOn(tx, req.TargetDate, req.RequesterParty)
		if err != nil {
			return err
		}
		if busy {
			if err := tx.Delete(&req).Error; err != nil {
				return fmt.Errorf("swap: drop conflicting request: %w", err)
			}
			healed = fmt.Errorf("%w: %s", ErrRequesterBusy, req.RequesterParty)
			return nil
		}

		if err := tx.Model(&target).Updates(map[string]any{
			"party":   req.RequesterParty,
			"user_id": req.RequesterUserID,
		}).Error; err != nil {
			return fmt.Errorf("swap: reassign booking: %w", err)
		}
		return tx.Model(&req).Update("status", model.SwapAccepted).Error
	})
	if err != nil {
		return err
	}
	if healed != nil {
		return healed
	}

	// Best-effort bonus for the party that gave up its slot; a failure here
	// must not roll back the committed swap.
	if err := e.karma.Adjust(ctx, accepterParty, e.bonus, "swap accepted"); err != nil {
		log.Printf("swap: bonus for %s not applied: %v", accepterParty, err)
	}

	e.hub.Broadcast()
	return nil
}

// Reject marks the request rejected. The row stays so the requester sees the
// outcome and dismisses it explicitly.
func (e *Engine) Reject(ctx context.Context, requestID, rejecterParty string) error {
	var req model.SwapRequest
	err := e.db.WithContext(ctx).First(&req, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRequestGone
	}
	if err != nil {
		return fmt.Errorf("swap: load request: %w", err)
	}
	if req.TargetParty != rejecterParty {
		return ErrNotTarget
	}
	if !req.Pending() {
		return ErrRequestDecided
	}
	return e.db.WithContext(ctx).Model(&req).Update("status", model.SwapRejected).Error
}

// Dismiss deletes a request the requester has seen the outcome of.
func (e *Engine) Dismiss(ctx context.Context, requestID, requesterParty string) error {
	result := e.db.WithContext(ctx).
		Where("id = ? AND requester_party = ?", requestID, requesterParty).
		Delete(&model.SwapRequest{})
	if result.Error != nil {
		return fmt.Errorf("swap: dismiss request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRequestGone
	}
	return nil
}

// ListIncoming returns the pending requests addressed to a party, newest
// first.
func (e *Engine) ListIncoming(ctx context.Context, party string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := e.db.WithContext(ctx).
		Where("target_party = ? AND (status = ? OR status = ?)", party, "", model.SwapPending).
		Order("requested_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("swap: list incoming for %s: %w", party, err)
	}
	return reqs, nil
}

// ListOutgoing returns a party's own requests with the given decided status.
func (e *Engine) ListOutgoing(ctx context.Context, party, status string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := e.db.WithContext(ctx).
		Where("requester_party = ? AND status = ?", party, status).
		Order("requested_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("swap: list outgoing for %s: %w", party, err)
	}
	return reqs, nil
}
