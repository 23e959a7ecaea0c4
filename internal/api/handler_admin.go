package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-booking-backend/internal/model"
)

type systemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetSystemStatus flips the system between normal operation and maintenance
// mode. Maintenance blocks new bookings and greys out availability.
func (h *Handler) SetSystemStatus(c *gin.Context) {
	var req systemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != model.SystemOK && req.Status != model.SystemMaintenance {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be ok or maintenance"})
		return
	}

	if err := h.upsertSettings(c, map[string]any{"system_status": req.Status}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.bookings.Hub().Broadcast()
	c.Status(http.StatusNoContent)
}

// GetSettings returns the mutable system-wide settings.
func (h *Handler) GetSettings(c *gin.Context) {
	var settings model.AppSettings
	err := h.db.WithContext(c.Request.Context()).First(&settings, "id = ?", 1).Error
	if err == gorm.ErrRecordNotFound {
		settings = model.AppSettings{ID: 1, SystemStatus: model.SystemOK}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

type updateSettingsRequest struct {
	PostalCode *string `json:"postalCode"`
	QRSecret   *string `json:"qrSecret"`
}

// UpdateSettings changes individual settings fields; absent fields are left
// untouched.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.QRSecret != nil {
		updates["qr_secret"] = *req.QRSecret
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.upsertSettings(c, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) upsertSettings(c *gin.Context, updates map[string]any) error {
	settings := model.AppSettings{ID: 1, SystemStatus: model.SystemOK}
	return h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&settings).Error; err != nil {
			return err
		}
		return tx.Model(&model.AppSettings{}).Where("id = ?", 1).Updates(updates).Error
	})
}

type createTicketRequest struct {
	Description string `json:"description" binding:"required"`
}

// CreateTicket files a maintenance ticket for the machine. Any user may
// file one; resolving is an admin action.
func (h *Handler) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, party := h.session(c)
	ticket := model.MaintenanceTicket{
		ID:          uuid.NewString(),
		Party:       party,
		UserID:      userID,
		Description: req.Description,
		Status:      model.TicketOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&ticket).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// ListTickets returns all maintenance tickets, newest first.
func (h *Handler) ListTickets(c *gin.Context) {
	var tickets []model.MaintenanceTicket
	err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").Find(&tickets).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// ResolveTicket closes a maintenance ticket.
func (h *Handler) ResolveTicket(c *gin.Context) {
	result := h.db.WithContext(c.Request.Context()).
		Model(&model.MaintenanceTicket{}).
		Where("id = ?", c.Param("id")).
		Update("status", model.TicketResolved)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
