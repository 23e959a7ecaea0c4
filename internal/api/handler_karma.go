package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetKarma returns the caller party's balance and tier entitlements. Reading
// the balance also applies any regeneration that has come due.
func (h *Handler) GetKarma(c *gin.Context) {
	_, party := h.session(c)

	if err := h.karma.Touch(c.Request.Context(), party); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	balance, err := h.karma.Balance(c.Request.Context(), party)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"party":  party,
		"karma":  balance,
		"status": h.karma.Status(balance),
	})
}
