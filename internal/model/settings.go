package model

import "time"

// System status values consulted by the booking engine.
const (
	SystemOK          = "ok"
	SystemMaintenance = "maintenance"
)

// AppSettings is a singleton row (ID is always 1) holding mutable
// system-wide switches.
type AppSettings struct {
	ID           int       `gorm:"primaryKey" json:"-"`
	SystemStatus string    `gorm:"size:16;not null;default:'ok'" json:"systemStatus"`
	PostalCode   string    `gorm:"size:16" json:"postalCode"`
	QRSecret     string    `gorm:"size:128" json:"-"`
	UpdatedAt    time.Time `gorm:"not null" json:"-"`
}

// Maintenance ticket statuses.
const (
	TicketOpen     = "open"
	TicketResolved = "resolved"
)

// MaintenanceTicket is a defect report filed by a party.
type MaintenanceTicket struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Party       string    `gorm:"size:64;not null;index" json:"party"`
	UserID      string    `gorm:"size:36;not null" json:"userId"`
	Description string    `gorm:"size:1024;not null" json:"description"`
	Status      string    `gorm:"size:16;not null;default:'open'" json:"status"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"-"`
}
