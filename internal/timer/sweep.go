package timer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/parse"
)

// Sweeper detects expired timers and performs the exactly-once completion
// push. It is driven by an external scheduler (sweepd) or by the optional
// in-process loop in bookingd.
type Sweeper struct {
	timers     *Engine
	dispatcher *notification.Dispatcher
	clickURL   string
	loc        *time.Location
}

// NewSweeper creates a sweeper. loc is the slot timezone; reminders define
// "tomorrow" by that calendar, not by UTC.
func NewSweeper(timers *Engine, dispatcher *notification.Dispatcher, clickURL string, loc *time.Location) *Sweeper {
	return &Sweeper{timers: timers, dispatcher: dispatcher, clickURL: clickURL, loc: loc}
}

// SweepExpired notifies every expired, un-notified timer once. Each timer is
// processed independently so one failure does not block the rest; the sweep
// waits for all of them before returning. Timers are marked notified even
// when delivery fails or no device is subscribed — that is what makes
// repeated sweeps idempotent.
func (s *Sweeper) SweepExpired(ctx context.Context) error {
	now := s.timers.clk.Now()
	var expired []model.ActiveTimer
	err := s.timers.db.WithContext(ctx).
		Where("end_time <= ? AND notified = ?", now, false).
		Find(&expired).Error
	if err != nil {
		return fmt.Errorf("timer: query expired timers: %w", err)
	}

	var wg sync.WaitGroup
	for _, t := range expired {
		wg.Add(1)
		go func(t model.ActiveTimer) {
			defer wg.Done()
			s.notifyExpired(ctx, t)
		}(t)
	}
	wg.Wait()
	return nil
}

func (s *Sweeper) notifyExpired(ctx context.Context, t model.ActiveTimer) {
	subs, err := s.dispatcher.SubscriptionsForParty(ctx, t.Party)
	if err != nil {
		log.Printf("timer: subscriptions for %s: %v", t.Party, err)
		// Still mark below: a timer is never renotified.
	}

	if len(subs) > 0 {
		result := s.dispatcher.Multicast(ctx, subs, notification.Message{
			Title: "Laundry finished",
			Body:  fmt.Sprintf("The %s program for %s is done.", t.ProgramName, t.Party),
			URL:   s.clickURL,
		})
		log.Printf("timer: notified %s: %d delivered, %d failed", t.Party, result.SuccessCount, result.FailureCount)
	}

	if err := s.timers.db.WithContext(ctx).Model(&model.ActiveTimer{}).
		Where("party = ?", t.Party).
		Update("notified", true).Error; err != nil {
		log.Printf("timer: mark notified for %s: %v", t.Party, err)
	}
}

// SweepReminders pushes a heads-up to every party holding a non-released
// booking on the next calendar day. Meant for a once-daily schedule; it has
// no dedup flag of its own.
func (s *Sweeper) SweepReminders(ctx context.Context) error {
	tomorrow := s.timers.clk.Now().In(s.loc).Add(24 * time.Hour).Format(parse.DateLayout)

	var bookings []model.Booking
	err := s.timers.db.WithContext(ctx).
		Where("date = ? AND is_released = ?", tomorrow, false).
		Find(&bookings).Error
	if err != nil {
		return fmt.Errorf("timer: query tomorrow's bookings: %w", err)
	}

	var wg sync.WaitGroup
	for _, b := range bookings {
		wg.Add(1)
		go func(b model.Booking) {
			defer wg.Done()
			subs, err := s.dispatcher.SubscriptionsForParty(ctx, b.Party)
			if err != nil {
				log.Printf("timer: subscriptions for %s: %v", b.Party, err)
				return
			}
			if len(subs) == 0 {
				return
			}
			s.dispatcher.Multicast(ctx, subs, notification.Message{
				Title: "Laundry reminder",
				Body:  fmt.Sprintf("Your party has the %s slot tomorrow (%s).", b.Slot, b.Date),
				URL:   s.clickURL,
			})
		}(b)
	}
	wg.Wait()
	return nil
}

// Run executes SweepExpired on a fixed interval until the context is
// cancelled. Used by bookingd deployments without an external scheduler.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting timer sweep loop...")

	if err := s.SweepExpired(ctx); err != nil {
		log.Printf("timer: sweep failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Timer sweep loop shutting down.")
			return
		case <-ticker.C:
			if err := s.SweepExpired(ctx); err != nil {
				log.Printf("timer: sweep failed: %v", err)
			}
		}
	}
}
