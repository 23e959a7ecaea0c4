package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createSwapRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
}

// CreateSwapRequest asks the holder of a booking to hand it over.
func (h *Handler) CreateSwapRequest(c *gin.Context) {
	var req createSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, party := h.session(c)
	request, err := h.swaps.Request(c.Request.Context(), req.BookingID, party, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// GetIncomingSwaps lists pending requests aimed at the caller's bookings.
func (h *Handler) GetIncomingSwaps(c *gin.Context) {
	_, party := h.session(c)
	requests, err := h.swaps.ListIncoming(c.Request.Context(), party)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetOutgoingSwaps lists the caller party's own requests, optionally
// filtered by ?status=.
func (h *Handler) GetOutgoingSwaps(c *gin.Context) {
	_, party := h.session(c)
	requests, err := h.swaps.ListOutgoing(c.Request.Context(), party, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

// AcceptSwap hands the contested booking over to the requester.
func (h *Handler) AcceptSwap(c *gin.Context) {
	userID, party := h.session(c)
	if err := h.swaps.Accept(c.Request.Context(), c.Param("id"), party, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RejectSwap declines a request; the requester still sees the outcome.
func (h *Handler) RejectSwap(c *gin.Context) {
	_, party := h.session(c)
	if err := h.swaps.Reject(c.Request.Context(), c.Param("id"), party); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DismissSwap lets the requester clear their own request, pending or
// already answered.
func (h *Handler) DismissSwap(c *gin.Context) {
	_, party := h.session(c)
	if err := h.swaps.Dismiss(c.Request.Context(), c.Param("id"), party); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
