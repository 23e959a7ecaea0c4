package model

import "time"

// Slot identifiers for the two fixed daily windows.
const (
	SlotMorning = "morning"
	SlotEvening = "evening"
)

// Booking is a party's reservation of one slot on one date. The composite
// unique index on (date, slot) makes slot creation a conditional write, so
// two devices racing for the same slot cannot both succeed.
type Booking struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Date         string     `gorm:"size:10;not null;uniqueIndex:idx_bookings_date_slot;index" json:"date"`
	Slot         string     `gorm:"size:16;not null;uniqueIndex:idx_bookings_date_slot" json:"slot"`
	Party        string     `gorm:"size:64;not null;index" json:"party"`
	UserID       string     `gorm:"size:36;not null" json:"userId"`
	IsReleased   bool       `gorm:"not null;default:false" json:"isReleased"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"-"`
	UpdatedAt    time.Time  `gorm:"not null" json:"-"`
}
