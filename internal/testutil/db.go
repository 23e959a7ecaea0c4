package testutil

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/db"
)

// NewDB opens a fresh in-memory sqlite database with the full schema. The
// database name is derived from the test name so parallel packages never
// share state.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return gdb
}

// Config returns a fully populated configuration with the documented policy
// defaults, suitable for engine tests.
func Config() *config.Config {
	return &config.Config{
		Parties: []string{"GroundFloor", "FirstFloor", "SecondFloor", "Admin"},
		Server: config.ServerConfig{
			Port:            8080,
			RateLimitPerSec: 1000, // never throttle a test
			RateLimitBurst:  1000,
			CacheTTLSeconds: 1,
		},
		Auth: config.AuthConfig{
			InviteCode:      "test-invite",
			JWTSecret:       "test-secret",
			TokenTTLMinutes: 60,
			BcryptCost:      4, // keep hashing cheap in tests
			AdminParty:      "Admin",
		},
		Slots: config.SlotsConfig{
			MorningStartHour: 7,
			MorningEndHour:   14,
			EveningEndHour:   21,
			Timezone:         "UTC",
		},
		Karma: config.KarmaConfig{
			StartingBalance:   40,
			MaxBalance:        60,
			RegenAmount:       10,
			RegenDays:         7,
			NormalCost:        -10,
			PrimeCost:         -15,
			LowBelow:          20,
			TopAt:             40,
			LowAdvanceWeeks:   1,
			MidAdvanceWeeks:   2,
			TopAdvanceWeeks:   4,
			EarlyCancelHours:  24,
			EarlyCancelBonus:  2,
			LateCancelPenalty: -5,
			SwapBonus:         5,
		},
	}
}
