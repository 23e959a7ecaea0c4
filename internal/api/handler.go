package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/auth"
	"laundry-booking-backend/internal/booking"
	"laundry-booking-backend/internal/karma"
	"laundry-booking-backend/internal/mw"
	"laundry-booking-backend/internal/parse"
	"laundry-booking-backend/internal/swap"
	"laundry-booking-backend/internal/timer"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg      *config.Config
	db       *gorm.DB
	auth     *auth.Service
	karma    *karma.Engine
	bookings *booking.Engine
	swaps    *swap.Engine
	timers   *timer.Engine
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, db *gorm.DB, authSvc *auth.Service, k *karma.Engine, b *booking.Engine, s *swap.Engine, t *timer.Engine, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		cfg:      cfg,
		db:       db,
		auth:     authSvc,
		karma:    k,
		bookings: b,
		swaps:    s,
		timers:   t,
		webpush:  webpushOptions,
	}
}

func (h *Handler) session(c *gin.Context) (userID, party string) {
	return c.GetString(mw.KeyUserID), c.GetString(mw.KeyParty)
}

// respondError maps engine errors onto HTTP statuses. Policy rejections are
// conflicts or forbidden actions with a human-readable reason; anything
// unclassified is a store failure.
func respondError(c *gin.Context, err error) {
	var eligibility *booking.EligibilityError

	switch {
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, swap.ErrRequestGone):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrMaintenance),
		errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrDuplicateDay),
		errors.Is(err, swap.ErrRequestExists),
		errors.Is(err, swap.ErrRequestDecided),
		errors.Is(err, swap.ErrBookingGone),
		errors.Is(err, swap.ErrRequesterBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotOwner),
		errors.Is(err, swap.ErrNotTarget),
		errors.Is(err, swap.ErrOwnBooking):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &eligibility):
		c.JSON(http.StatusForbidden, gin.H{"error": eligibility.Reason})
	case errors.Is(err, parse.ErrFormat),
		errors.Is(err, timer.ErrNoParty),
		errors.Is(err, timer.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
