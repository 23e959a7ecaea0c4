package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-booking-backend/internal/auth"
	"laundry-booking-backend/internal/booking"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/karma"
	"laundry-booking-backend/internal/swap"
	"laundry-booking-backend/internal/testutil"
	"laundry-booking-backend/internal/timer"
)

// Monday morning, inside the morning slot.
var monday = time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.NewDB(t)
	cfg := testutil.Config()
	clk := clock.NewFixed(monday)

	authSvc := auth.New(gdb, cfg, clk)
	k := karma.New(gdb, cfg, clk)
	b := booking.New(gdb, cfg, k, clk)
	s := swap.New(gdb, cfg, k, clk, b.Hub())
	tm := timer.New(gdb, clk)

	h := NewHandler(cfg, gdb, authSvc, k, b, s, tm, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	return NewRouter(h)
}

func do(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// signup registers a user in the given party and returns a session token.
func signup(t *testing.T, router *gin.Engine, name, party string) string {
	t.Helper()

	body := fmt.Sprintf(`{"name":%q,"password":"hunter22","party":%q,"inviteCode":"test-invite"}`, name, party)
	w := do(router, "POST", "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, "POST", "/api/auth/login", "", fmt.Sprintf(`{"name":%q,"password":"hunter22"}`, name))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "GET", "/api/karma", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, "GET", "/api/karma", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsBadInvite(t *testing.T) {
	router := newTestRouter(t)

	body := `{"name":"eve","password":"pw","party":"GroundFloor","inviteCode":"wrong"}`
	w := do(router, "POST", "/api/auth/register", "", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "alice", "GroundFloor")

	w := do(router, "POST", "/api/bookings", token, `{"date":"2025-06-10","slot":"morning"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Second slot on the same day is a conflict.
	w = do(router, "POST", "/api/bookings", token, `{"date":"2025-06-10","slot":"evening"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The booking debit shows up on the karma endpoint.
	w = do(router, "GET", "/api/karma", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var karmaResp struct {
		Karma  int `json:"karma"`
		Status struct {
			Tier string `json:"tier"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &karmaResp))
	assert.Equal(t, 30, karmaResp.Karma)
	assert.Equal(t, "mid", karmaResp.Status.Tier)

	w = do(router, "GET", "/api/availability?date=2025-06-10", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var views map[string]struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Equal(t, "booked-by-me", views["morning"].Status)
	assert.Equal(t, "disabled-duplicate", views["evening"].Status)

	w = do(router, "DELETE", "/api/bookings", token, `{"date":"2025-06-10","slot":"morning"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMalformedInputsAreBadRequests(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "alice", "GroundFloor")

	w := do(router, "GET", "/api/availability?date=10.06.2025", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/api/bookings", token, `{"date":"not-a-date","slot":"morning"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/api/bookings", token, `{"date":"2025-06-10","slot":"noon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotConflictAcrossParties(t *testing.T) {
	router := newTestRouter(t)
	alice := signup(t, router, "alice", "GroundFloor")
	bob := signup(t, router, "bob", "FirstFloor")

	w := do(router, "POST", "/api/bookings", alice, `{"date":"2025-06-10","slot":"morning"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(router, "POST", "/api/bookings", bob, `{"date":"2025-06-10","slot":"morning"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSwapOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	alice := signup(t, router, "alice", "GroundFloor")
	bob := signup(t, router, "bob", "FirstFloor")

	w := do(router, "POST", "/api/bookings", alice, `{"date":"2025-06-10","slot":"morning"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Bob finds Alice's booking on the availability board and asks for it.
	w = do(router, "GET", "/api/availability?date=2025-06-10", bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	var views map[string]struct {
		Status    string `json:"status"`
		BookingID string `json:"bookingId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Equal(t, "booked-by-other", views["morning"].Status)

	w = do(router, "POST", "/api/swaps", bob, fmt.Sprintf(`{"bookingId":%q}`, views["morning"].BookingID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(router, "GET", "/api/swaps/incoming", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	// Bob cannot accept his own request.
	w = do(router, "POST", "/api/swaps/"+created.ID+"/accept", bob, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, "POST", "/api/swaps/"+created.ID+"/accept", alice, "")
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// The slot now belongs to Bob's party.
	w = do(router, "GET", "/api/availability?date=2025-06-11", bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, "GET", "/api/machine-status", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTimerOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "alice", "GroundFloor")

	w := do(router, "GET", "/api/timers", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)

	w = do(router, "POST", "/api/timers", token, `{"programName":"Cotton 60","durationMinutes":90}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, "GET", "/api/timers", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":true`)
	assert.Contains(t, w.Body.String(), "Cotton 60")

	w = do(router, "DELETE", "/api/timers", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, "POST", "/api/timers", token, `{"programName":"Cotton 60","durationMinutes":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminMaintenanceMode(t *testing.T) {
	router := newTestRouter(t)
	admin := signup(t, router, "root", "Admin")
	alice := signup(t, router, "alice", "GroundFloor")

	// Non-admins cannot reach the admin surface.
	w := do(router, "PUT", "/api/admin/system-status", alice, `{"status":"maintenance"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, "PUT", "/api/admin/system-status", admin, `{"status":"maintenance"}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(router, "POST", "/api/bookings", alice, `{"date":"2025-06-10","slot":"morning"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, "PUT", "/api/admin/system-status", admin, `{"status":"ok"}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, "POST", "/api/bookings", alice, `{"date":"2025-06-10","slot":"morning"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestMaintenanceTickets(t *testing.T) {
	router := newTestRouter(t)
	admin := signup(t, router, "root", "Admin")
	alice := signup(t, router, "alice", "GroundFloor")

	w := do(router, "POST", "/api/tickets", alice, `{"description":"drum is squeaking"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ticket struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))

	w = do(router, "GET", "/api/admin/tickets", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "drum is squeaking")

	w = do(router, "POST", "/api/admin/tickets/"+ticket.ID+"/resolve", admin, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, "POST", "/api/admin/tickets/missing/resolve", admin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionsOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "alice", "GroundFloor")

	body := `{"endpoint":"https://push.example/abc","p256dh":"key","auth":"secret"}`
	w := do(router, "PUT", "/api/subscriptions", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, "GET", "/api/subscriptions?endpoint=https://push.example/abc", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "DELETE", "/api/subscriptions", token, `{"endpoint":"https://push.example/abc"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, "GET", "/api/subscriptions?endpoint=https://push.example/abc", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "GET", "/api/vapid_public_key", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
