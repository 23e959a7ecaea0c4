package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetMachineStatus reports whether the machine is busy right now.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	status, err := h.bookings.MachineStatusNow(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// StreamMachineStatus pushes the machine status over server-sent events. The
// initial state is sent immediately; afterwards a new event follows every
// booking mutation, plus a periodic tick so slot-boundary transitions are
// not missed while the store is quiet.
func (h *Handler) StreamMachineStatus(c *gin.Context) {
	changes, cancel := h.bookings.Hub().Subscribe()
	defer cancel()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		status, err := h.bookings.MachineStatusNow(c.Request.Context())
		if err != nil {
			c.SSEvent("error", gin.H{"error": err.Error()})
			return false
		}
		c.SSEvent("status", status)

		select {
		case <-changes:
			return true
		case <-ticker.C:
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
