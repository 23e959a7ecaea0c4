package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Push     PushConfig     `yaml:"push"`
	Auth     AuthConfig     `yaml:"auth"`
	Parties  []string       `yaml:"parties"`
	Slots    SlotsConfig    `yaml:"slots"`
	Karma    KarmaConfig    `yaml:"karma"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
	ClickURL   string `yaml:"click_url"`
}

// AuthConfig holds registration and session settings.
type AuthConfig struct {
	InviteCode      string `yaml:"invite_code"`
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	BcryptCost      int    `yaml:"bcrypt_cost"`
	AdminParty      string `yaml:"admin_party"`
}

// SlotsConfig defines the two fixed daily booking windows by wall-clock hour.
// The morning slot runs [MorningStartHour, MorningEndHour), the evening slot
// [MorningEndHour, EveningEndHour).
type SlotsConfig struct {
	MorningStartHour int    `yaml:"morning_start_hour"`
	MorningEndHour   int    `yaml:"morning_end_hour"`
	EveningEndHour   int    `yaml:"evening_end_hour"`
	Timezone         string `yaml:"timezone"`
}

// Location resolves the configured slot timezone, falling back to UTC when
// the name is unknown to the host's tzdata.
func (s *SlotsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// KarmaConfig holds the karma economy policy. These values are product
// policy, not engineering constants, so everything is tunable here.
type KarmaConfig struct {
	StartingBalance int `yaml:"starting_balance"`
	MaxBalance      int `yaml:"max_balance"`
	RegenAmount     int `yaml:"regen_amount"`
	RegenDays       int `yaml:"regen_days"`

	// Booking costs are debits and therefore negative.
	NormalCost int `yaml:"normal_cost"`
	PrimeCost  int `yaml:"prime_cost"`

	// Tier thresholds: balance < LowBelow is the restricted tier,
	// balance >= TopAt is the top tier, everything between is mid.
	LowBelow int `yaml:"low_below"`
	TopAt    int `yaml:"top_at"`

	LowAdvanceWeeks int `yaml:"low_advance_weeks"`
	MidAdvanceWeeks int `yaml:"mid_advance_weeks"`
	TopAdvanceWeeks int `yaml:"top_advance_weeks"`

	EarlyCancelHours  int `yaml:"early_cancel_hours"`
	EarlyCancelBonus  int `yaml:"early_cancel_bonus"`
	LateCancelPenalty int `yaml:"late_cancel_penalty"`
	SwapBonus         int `yaml:"swap_bonus"`
}

// SweepConfig controls the optional in-process sweep loop of bookingd.
// The sweepd binary ignores Enabled/Interval and always runs a single pass.
type SweepConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Parties) == 0 {
		return nil, fmt.Errorf("config: at least one party must be listed under parties")
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 12 * 60
	}

	applySlotDefaults(&cfg.Slots)
	applyKarmaDefaults(&cfg.Karma)

	if cfg.Sweep.IntervalSeconds <= 0 {
		log.Printf("sweep.interval_seconds is not set or invalid; defaulting to 60")
		cfg.Sweep.IntervalSeconds = 60
	}
	cfg.Sweep.Interval = time.Duration(cfg.Sweep.IntervalSeconds) * time.Second

	return &cfg, nil
}

func applySlotDefaults(s *SlotsConfig) {
	if s.MorningStartHour <= 0 {
		s.MorningStartHour = 7
	}
	if s.MorningEndHour <= 0 {
		s.MorningEndHour = 14
	}
	if s.EveningEndHour <= 0 {
		s.EveningEndHour = 21
	}
	if s.Timezone == "" {
		s.Timezone = "Europe/Berlin"
	}
}

func applyKarmaDefaults(k *KarmaConfig) {
	if k.StartingBalance == 0 {
		k.StartingBalance = 40
	}
	if k.MaxBalance == 0 {
		k.MaxBalance = 60
	}
	if k.RegenAmount == 0 {
		k.RegenAmount = 10
	}
	if k.RegenDays == 0 {
		k.RegenDays = 7
	}
	if k.NormalCost == 0 {
		k.NormalCost = -10
	}
	if k.PrimeCost == 0 {
		k.PrimeCost = -15
	}
	if k.LowBelow == 0 {
		k.LowBelow = 20
	}
	if k.TopAt == 0 {
		k.TopAt = 40
	}
	if k.LowAdvanceWeeks == 0 {
		k.LowAdvanceWeeks = 1
	}
	if k.MidAdvanceWeeks == 0 {
		k.MidAdvanceWeeks = 2
	}
	if k.TopAdvanceWeeks == 0 {
		k.TopAdvanceWeeks = 4
	}
	if k.EarlyCancelHours == 0 {
		k.EarlyCancelHours = 24
	}
	if k.EarlyCancelBonus == 0 {
		k.EarlyCancelBonus = 2
	}
	if k.LateCancelPenalty == 0 {
		k.LateCancelPenalty = -5
	}
	if k.SwapBonus == 0 {
		k.SwapBonus = 5
	}
}
