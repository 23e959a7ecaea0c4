package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type slotRequest struct {
	Date string `json:"date" binding:"required"`
	Slot string `json:"slot" binding:"required"`
}

// CreateBooking reserves a slot for the caller's party.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, party := h.session(c)
	if err := h.bookings.Create(c.Request.Context(), req.Date, req.Slot, party, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// CancelBooking removes the caller's booking and settles the karma delta.
func (h *Handler) CancelBooking(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, party := h.session(c)
	if err := h.bookings.Cancel(c.Request.Context(), req.Date, req.Slot, party); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReleaseBooking offers the caller's booking for spontaneous use without
// returning the karma.
func (h *Handler) ReleaseBooking(c *gin.Context) {
	h.mutateBooking(c, h.bookings.Release)
}

// CheckInBooking marks the caller's booking as in use.
func (h *Handler) CheckInBooking(c *gin.Context) {
	h.mutateBooking(c, h.bookings.CheckIn)
}

// CheckOutBooking marks the caller's booking as finished and stops any timer
// the party still has running.
func (h *Handler) CheckOutBooking(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, party := h.session(c)
	if err := h.bookings.CheckOut(c.Request.Context(), req.Date, req.Slot, party); err != nil {
		respondError(c, err)
		return
	}
	// A forgotten timer past checkout would still fire a finished push.
	if err := h.timers.Stop(c.Request.Context(), party); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) mutateBooking(c *gin.Context, op func(ctx context.Context, date, slot, party string) error) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, party := h.session(c)
	if err := op(c.Request.Context(), req.Date, req.Slot, party); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
