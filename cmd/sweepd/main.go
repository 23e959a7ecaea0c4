// sweepd runs a single notification sweep and exits, for use from cron or a
// systemd timer. -mode=expiry fires finished-timer pushes, -mode=reminder
// fires day-before booking reminders.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/timer"
)

func main() {
	logger := log.New(os.Stdout, "sweepd ", log.LstdFlags)

	mode := flag.String("mode", "expiry", "sweep to run: expiry or reminder")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	timerEngine := timer.New(gormDB, clock.NewSystem())
	dispatcher := notification.NewDispatcher(gormDB, &webpushOptions)
	sweeper := timer.NewSweeper(timerEngine, dispatcher, cfg.Push.ClickURL, cfg.Slots.Location())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch *mode {
	case "expiry":
		err = sweeper.SweepExpired(ctx)
	case "reminder":
		err = sweeper.SweepReminders(ctx)
	default:
		logger.Fatalf("unknown mode %q, want expiry or reminder", *mode)
	}
	if err != nil {
		logger.Fatalf("%s sweep failed: %v", *mode, err)
	}
	logger.Printf("%s sweep complete", *mode)
}
