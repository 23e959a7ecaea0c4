package model

import "time"

// User is an individual member of a party. Authentication is per user,
// karma and bookings are per party.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Party        string    `gorm:"size:64;not null;index" json:"party"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"-"`
}
