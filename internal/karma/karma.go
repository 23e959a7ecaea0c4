package karma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/parse"
)

// Tier names for the three karma bands.
type Tier string

const (
	TierLow Tier = "low"
	TierMid Tier = "mid"
	TierTop Tier = "top"
)

// TierStatus describes what a balance entitles a party to.
type TierStatus struct {
	Tier             Tier `json:"tier"`
	MaxAdvanceWeeks  int  `json:"maxAdvanceWeeks"`
	CanBookPrimeDays bool `json:"canBookPrimeDays"`
}

// Eligibility is the outcome of a prospective-booking check. When Allowed is
// false, Reason carries the user-facing explanation. Cost is the (negative)
// karma delta the caller applies when it actually creates the booking.
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Cost    int    `json:"cost,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Engine owns the per-party karma balances.
type Engine struct {
	db    *gorm.DB
	cfg   *config.KarmaConfig
	slots *config.SlotsConfig
	loc   *time.Location
	clk   clock.Clock
}

// New creates a karma engine. The slot timezone decides what "today" and
// "weekend" mean for eligibility; an unknown timezone falls back to UTC.
func New(db *gorm.DB, cfg *config.Config, clk clock.Clock) *Engine {
	return &Engine{db: db, cfg: &cfg.Karma, slots: &cfg.Slots, loc: cfg.Slots.Location(), clk: clk}
}

// WithTx returns an engine bound to the given transaction, so callers can
// compose karma writes with their own writes atomically.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	bound := *e
	bound.db = tx
	return &bound
}

// Status maps a balance to its tier. Pure, no store access.
func (e *Engine) Status(balance int) TierStatus {
	switch {
	case balance < e.cfg.LowBelow:
		return TierStatus{Tier: TierLow, MaxAdvanceWeeks: e.cfg.LowAdvanceWeeks, CanBookPrimeDays: false}
	case balance >= e.cfg.TopAt:
		return TierStatus{Tier: TierTop, MaxAdvanceWeeks: e.cfg.TopAdvanceWeeks, CanBookPrimeDays: true}
	default:
		return TierStatus{Tier: TierMid, MaxAdvanceWeeks: e.cfg.MidAdvanceWeeks, CanBookPrimeDays: true}
	}
}

// Cost returns the booking cost (a negative delta) for a date.
func (e *Engine) Cost(day time.Time) int {
	if parse.IsWeekend(day) {
		return e.cfg.PrimeCost
	}
	return e.cfg.NormalCost
}

// InitializeIfAbsent creates the party's account at the starting balance and
// deducts the cost of every booking on record that is today or later, so a
// party that booked before karma tracking existed starts consistent with its
// commitments. A concurrent initialization loses the conflict and is a no-op.
func (e *Engine) InitializeIfAbsent(ctx context.Context, party string) error {
	var count int64
	if err := e.db.WithContext(ctx).Model(&model.KarmaAccount{}).
		Where("party = ?", party).Count(&count).Error; err != nil {
		return fmt.Errorf("karma: lookup account for %s: %w", party, err)
	}
	if count > 0 {
		return nil
	}

	today := e.today().Format(parse.DateLayout)
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bookings []model.Booking
		if err := tx.Where("party = ? AND date >= ?", party, today).Find(&bookings).Error; err != nil {
			return fmt.Errorf("karma: load future bookings for %s: %w", party, err)
		}

		balance := e.cfg.StartingBalance
		for _, b := range bookings {
			day, err := parse.Date(b.Date, e.loc)
			if err != nil {
				continue
			}
			balance += e.Cost(day)
		}

		account := model.KarmaAccount{
			Party:       party,
			Karma:       balance,
			LastRegenAt: e.clk.Now(),
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account).Error
	})
}

// RegenerateIfDue grants the weekly regeneration amount when the interval
// has elapsed, capped at the maximum. The regen timestamp is always stamped
// once the interval has passed, even at the cap, so repeated calls within
// one interval never double-grant and never keep re-checking.
func (e *Engine) RegenerateIfDue(ctx context.Context, party string) error {
	var account model.KarmaAccount
	err := e.db.WithContext(ctx).First(&account, "party = ?", party).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("karma: load account for %s: %w", party, err)
	}

	interval := time.Duration(e.cfg.RegenDays) * 24 * time.Hour
	now := e.clk.Now()
	if now.Sub(account.LastRegenAt) <= interval {
		return nil
	}

	account.Karma += e.cfg.RegenAmount
	if account.Karma > e.cfg.MaxBalance {
		account.Karma = e.cfg.MaxBalance
	}
	account.LastRegenAt = now

	if err := e.db.WithContext(ctx).Save(&account).Error; err != nil {
		return fmt.Errorf("karma: save regenerated account for %s: %w", party, err)
	}
	return nil
}

// Balance reads the current balance, defaulting to the starting balance for
// parties without an account. Read-only; never creates a row.
func (e *Engine) Balance(ctx context.Context, party string) (int, error) {
	var account model.KarmaAccount
	err := e.db.WithContext(ctx).First(&account, "party = ?", party).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e.cfg.StartingBalance, nil
	}
	if err != nil {
		return 0, fmt.Errorf("karma: load account for %s: %w", party, err)
	}
	return account.Karma, nil
}

// Adjust adds delta to the party's balance, creating the account first if
// absent. The result is clamped at the configured maximum. Callers that need
// strict consistency run this through WithTx and propagate the error.
func (e *Engine) Adjust(ctx context.Context, party string, delta int, reason string) error {
	run := func(tx *gorm.DB) error {
		seed := model.KarmaAccount{
			Party:       party,
			Karma:       e.cfg.StartingBalance,
			LastRegenAt: e.clk.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		// Re-read after the conditional create: when the row already
		// existed (or a concurrent writer won the create), the stored
		// balance is authoritative, not the seed.
		var account model.KarmaAccount
		if err := tx.First(&account, "party = ?", party).Error; err != nil {
			return err
		}

		account.Karma += delta
		if account.Karma > e.cfg.MaxBalance {
			account.Karma = e.cfg.MaxBalance
		}
		return tx.Save(&account).Error
	}

	// Inside an outer transaction gorm turns this into a savepoint.
	if err := e.db.WithContext(ctx).Transaction(run); err != nil {
		return fmt.Errorf("karma: adjust %s by %d (%s): %w", party, delta, reason, err)
	}
	return nil
}

// Touch runs lazy initialization and regeneration for a party. Called by the
// API layer on sign-in and before eligibility-sensitive reads.
func (e *Engine) Touch(ctx context.Context, party string) error {
	if err := e.InitializeIfAbsent(ctx, party); err != nil {
		return err
	}
	return e.RegenerateIfDue(ctx, party)
}

// CheckEligibility decides whether a party may book the given date, and at
// what cost. Pure read-then-decide: the debit itself is applied by the
// booking engine inside its own transaction.
func (e *Engine) CheckEligibility(ctx context.Context, date string, party string) (Eligibility, error) {
	day, err := parse.Date(date, e.loc)
	if err != nil {
		return Eligibility{}, err
	}

	balance, err := e.Balance(ctx, party)
	if err != nil {
		return Eligibility{}, err
	}
	status := e.Status(balance)

	daysOut := int(day.Sub(e.today()).Hours() / 24)
	if daysOut < 0 {
		daysOut = -daysOut
	}
	diffWeeks := (daysOut + 6) / 7
	if diffWeeks > status.MaxAdvanceWeeks {
		return Eligibility{
			Reason: fmt.Sprintf("your karma tier allows booking at most %d week(s) in advance", status.MaxAdvanceWeeks),
		}, nil
	}

	if parse.IsWeekend(day) && !status.CanBookPrimeDays {
		if day.Sub(e.clk.Now().In(e.loc)) > 24*time.Hour {
			return Eligibility{
				Reason: "weekend slots are restricted at your karma level until 24h before",
			}, nil
		}
	}

	cost := e.Cost(day)
	if balance+cost < 0 {
		return Eligibility{
			Reason: fmt.Sprintf("insufficient karma: this booking costs %d, you have %d", -cost, balance),
		}, nil
	}

	return Eligibility{Allowed: true, Cost: cost}, nil
}

// today returns midnight of the current day in the slot timezone.
func (e *Engine) today() time.Time {
	now := e.clk.Now().In(e.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
}
