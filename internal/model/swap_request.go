package model

import "time"

// SwapRequest statuses. An empty status is treated as pending so that rows
// written before the status field existed keep working.
const (
	SwapPending  = "pending"
	SwapAccepted = "accepted"
	SwapRejected = "rejected"
)

// SwapRequest asks the owner of a booked slot to hand it over. The target
// booking's date/slot/party are denormalized for display so the request
// stays readable even while the booking row is locked or gone.
type SwapRequest struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	BookingID       string    `gorm:"size:36;not null;index" json:"bookingId"`
	TargetDate      string    `gorm:"size:10;not null" json:"targetDate"`
	TargetSlot      string    `gorm:"size:16;not null" json:"targetSlot"`
	TargetParty     string    `gorm:"size:64;not null;index" json:"targetParty"`
	RequesterParty  string    `gorm:"size:64;not null;index" json:"requesterParty"`
	RequesterUserID string    `gorm:"size:36;not null" json:"requesterUserId"`
	Status          string    `gorm:"size:16;not null;default:''" json:"status"`
	RequestedAt     time.Time `gorm:"not null" json:"requestedAt"`
}

// Pending reports whether the request is still awaiting a decision.
func (r *SwapRequest) Pending() bool {
	return r.Status == "" || r.Status == SwapPending
}
