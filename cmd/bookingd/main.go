package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/api"
	"laundry-booking-backend/internal/auth"
	"laundry-booking-backend/internal/booking"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/karma"
	"laundry-booking-backend/internal/notification"
	"laundry-booking-backend/internal/swap"
	"laundry-booking-backend/internal/timer"
)

func main() {
	logger := log.New(os.Stdout, "bookingd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

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
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewSystem()
	authSvc := auth.New(gormDB, cfg, clk)
	karmaEngine := karma.New(gormDB, cfg, clk)
	bookingEngine := booking.New(gormDB, cfg, karmaEngine, clk)
	swapEngine := swap.New(gormDB, cfg, karmaEngine, clk, bookingEngine.Hub())
	timerEngine := timer.New(gormDB, clk)

	if cfg.Sweep.Enabled {
		dispatcher := notification.NewDispatcher(gormDB, &webpushOptions)
		sweeper := timer.NewSweeper(timerEngine, dispatcher, cfg.Push.ClickURL, cfg.Slots.Location())
		go sweeper.Run(ctx, cfg.Sweep.Interval)
		logger.Printf("timer sweep running every %s", cfg.Sweep.Interval)
	}

	handler := api.NewHandler(cfg, gormDB, authSvc, karmaEngine, bookingEngine, swapEngine, timerEngine, &webpushOptions)
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
