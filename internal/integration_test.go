package internal

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-booking-backend/internal/auth"
	"laundry-booking-backend/internal/booking"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/karma"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/swap"
	"laundry-booking-backend/internal/testutil"
	"laundry-booking-backend/internal/timer"
)

type recordingSender struct {
	mu        sync.Mutex
	endpoints []string
}

func (r *recordingSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = append(r.endpoints, sub.Endpoint)
	return &http.Response{StatusCode: http.StatusCreated, Body: http.NoBody}, nil
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.endpoints...)
}

// TestBookingLifecycle walks one booking from creation through a swap,
// check-in, a finished timer and the next-day reminder, verifying the
// database state at each step.
func TestBookingLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	cfg := testutil.Config()
	// Monday morning, inside the morning slot.
	monday := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(monday)
	ctx := context.Background()

	authSvc := auth.New(testDB, cfg, clk)
	karmaEngine := karma.New(testDB, cfg, clk)
	bookingEngine := booking.New(testDB, cfg, karmaEngine, clk)
	swapEngine := swap.New(testDB, cfg, karmaEngine, clk, bookingEngine.Hub())
	timerEngine := timer.New(testDB, clk)

	alice, err := authSvc.Register(ctx, "alice", "pw-alice", "GroundFloor", "test-invite")
	require.NoError(t, err)
	bob, err := authSvc.Register(ctx, "bob", "pw-bob", "FirstFloor", "test-invite")
	require.NoError(t, err)

	require.NoError(t, testDB.Create(&model.PushSubscription{
		Endpoint: "https://push/bob-phone", P256DH: "k", Auth: "a", UserID: bob.ID,
	}).Error)

	// Alice books Tuesday morning; the debit lands in the same transaction.
	require.NoError(t, bookingEngine.Create(ctx, "2025-06-10", model.SlotMorning, "GroundFloor", alice.ID))
	balance, err := karmaEngine.Balance(ctx, "GroundFloor")
	require.NoError(t, err)
	assert.Equal(t, 30, balance)

	// Bob asks for the slot and Alice hands it over.
	views, err := bookingEngine.Availability(ctx, "2025-06-10", "FirstFloor")
	require.NoError(t, err)
	require.Equal(t, booking.StatusOther, views[model.SlotMorning].Status)

	request, err := swapEngine.Request(ctx, views[model.SlotMorning].BookingID, "FirstFloor", bob.ID)
	require.NoError(t, err)
	require.NoError(t, swapEngine.Accept(ctx, request.ID, "GroundFloor", alice.ID))

	views, err = bookingEngine.Availability(ctx, "2025-06-10", "FirstFloor")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusMine, views[model.SlotMorning].Status)

	// Accepting earned Alice's party the goodwill bonus.
	balance, err = karmaEngine.Balance(ctx, "GroundFloor")
	require.NoError(t, err)
	assert.Equal(t, 35, balance)

	// The day-before reminder goes to the new holder.
	reminderSender := &recordingSender{}
	dispatcher := notification.NewDispatcher(testDB, &webpush.Options{})
	dispatcher.SetSender(reminderSender)
	sweeper := timer.NewSweeper(timerEngine, dispatcher, "https://laundry.example", time.UTC)
	require.NoError(t, sweeper.SweepReminders(ctx))
	assert.Equal(t, []string{"https://push/bob-phone"}, reminderSender.sent())

	// Bob uses the slot and runs a timer.
	require.NoError(t, bookingEngine.CheckIn(ctx, "2025-06-10", model.SlotMorning, "FirstFloor"))
	_, err = timerEngine.Start(ctx, "FirstFloor", "Cotton 60", 90, bob.ID)
	require.NoError(t, err)
	require.NoError(t, bookingEngine.CheckOut(ctx, "2025-06-10", model.SlotMorning, "FirstFloor"))

	// Three hours later the timer has expired; the sweep notifies exactly
	// once no matter how often it runs.
	expirySender := &recordingSender{}
	dispatcher.SetSender(expirySender)
	lateTimers := timer.New(testDB, clock.NewFixed(monday.Add(3*time.Hour)))
	lateSweeper := timer.NewSweeper(lateTimers, dispatcher, "https://laundry.example", time.UTC)
	require.NoError(t, lateSweeper.SweepExpired(ctx))
	require.NoError(t, lateSweeper.SweepExpired(ctx))
	assert.Equal(t, []string{"https://push/bob-phone"}, expirySender.sent())

	var stored model.ActiveTimer
	require.NoError(t, testDB.First(&stored, "party = ?", "FirstFloor").Error)
	assert.True(t, stored.Notified)
}
