package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"laundry-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(h.cfg.Server.RateLimitPerSec), h.cfg.Server.RateLimitBurst)

	// Availability rarely changes between booking mutations; a short cache
	// absorbs polling clients without serving stale views for long.
	cacheTTL := time.Duration(h.cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, time.Minute)
	caching := mw.Cache(cacheStore, cacheTTL)

	session := mw.Session(h.auth)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public endpoints
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		api.GET("/machine-status", h.GetMachineStatus)
		api.GET("/machine-status/stream", h.StreamMachineStatus)

		authed := api.Group("")
		authed.Use(session)
		{
			authed.GET("/availability", caching, h.GetAvailability)
			authed.GET("/karma", h.GetKarma)

			authed.POST("/bookings", h.CreateBooking)
			authed.DELETE("/bookings", h.CancelBooking)
			authed.POST("/bookings/release", h.ReleaseBooking)
			authed.POST("/bookings/checkin", h.CheckInBooking)
			authed.POST("/bookings/checkout", h.CheckOutBooking)

			authed.POST("/swaps", h.CreateSwapRequest)
			authed.GET("/swaps/incoming", h.GetIncomingSwaps)
			authed.GET("/swaps/outgoing", h.GetOutgoingSwaps)
			authed.POST("/swaps/:id/accept", h.AcceptSwap)
			authed.POST("/swaps/:id/reject", h.RejectSwap)
			authed.DELETE("/swaps/:id", h.DismissSwap)

			authed.POST("/timers", h.StartTimer)
			authed.DELETE("/timers", h.StopTimer)
			authed.GET("/timers", h.GetTimer)

			authed.PUT("/subscriptions", h.PutSubscription)
			authed.GET("/subscriptions", h.GetSubscription)
			authed.DELETE("/subscriptions", h.DeleteSubscription)

			authed.POST("/tickets", h.CreateTicket)

			admin := authed.Group("/admin")
			admin.Use(mw.RequireAdmin(h.auth))
			{
				admin.PUT("/system-status", h.SetSystemStatus)
				admin.GET("/settings", h.GetSettings)
				admin.PUT("/settings", h.UpdateSettings)
				admin.GET("/tickets", h.ListTickets)
				admin.POST("/tickets/:id/resolve", h.ResolveTicket)
			}
		}
	}

	return r
}
