package model

import "time"

// KarmaAccount holds a party's karma balance. Exactly one row per party,
// created lazily on first access.
type KarmaAccount struct {
	Party       string    `gorm:"primaryKey;size:64" json:"party"`
	Karma       int       `gorm:"not null" json:"karma"`
	LastRegenAt time.Time `gorm:"not null" json:"lastRegenTimestamp"`
	CreatedAt   time.Time `gorm:"not null" json:"-"`
	UpdatedAt   time.Time `gorm:"not null" json:"-"`
}
