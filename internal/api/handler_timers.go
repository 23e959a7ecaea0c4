package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type startTimerRequest struct {
	ProgramName     string `json:"programName" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required"`
}

// StartTimer starts (or replaces) the caller party's laundry timer.
func (h *Handler) StartTimer(c *gin.Context) {
	var req startTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, party := h.session(c)
	t, err := h.timers.Start(c.Request.Context(), party, req.ProgramName, req.DurationMinutes, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// StopTimer clears the caller party's timer. Stopping an absent timer is
// not an error.
func (h *Handler) StopTimer(c *gin.Context) {
	_, party := h.session(c)
	if err := h.timers.Stop(c.Request.Context(), party); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTimer returns the caller party's running timer, if any.
func (h *Handler) GetTimer(c *gin.Context) {
	_, party := h.session(c)
	t, err := h.timers.Get(c.Request.Context(), party)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if t == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true, "timer": t})
}
