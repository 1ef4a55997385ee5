package main

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lg/energy-balance-api/internal/energy"
)

// energyBalanceResponse is the JSON shape of one daily balance. Status fields
// tell "no data yet" apart from "access denied" for each optional component.
type energyBalanceResponse struct {
	Date             string   `json:"date"`
	Mode             string   `json:"mode"`
	BMR              float64  `json:"bmr"`
	NEAT             float64  `json:"neat"`
	ActiveCalories   float64  `json:"active_calories"`
	TDEE             float64  `json:"tdee"`
	CaloriesIn       float64  `json:"calories_in"`
	DeficitSurplus   float64  `json:"deficit_surplus"`
	Direction        string   `json:"direction"`
	NEATStatus       string   `json:"neat_status"`
	ActiveStatus     string   `json:"active_status"`
	CaloriesInStatus string   `json:"calories_in_status"`
	PermissionDenied []string `json:"permission_denied"`
}

func newEnergyBalanceResponse(b energy.EnergyBalance, mode energy.Mode) energyBalanceResponse {
	// Ensure permission_denied is an empty array (not null) in JSON
	denied := []string{}
	for _, c := range b.PermissionDenied() {
		denied = append(denied, c.String())
	}
	return energyBalanceResponse{
		Date:             b.Date.Format("2006-01-02"),
		Mode:             mode.String(),
		BMR:              b.BMR,
		NEAT:             b.NEAT,
		ActiveCalories:   b.ActiveCalories,
		TDEE:             b.TDEE,
		CaloriesIn:       b.CaloriesIn,
		DeficitSurplus:   b.DeficitSurplus,
		Direction:        b.Direction(),
		NEATStatus:       b.NEATStatus.String(),
		ActiveStatus:     b.ActiveStatus.String(),
		CaloriesInStatus: b.CaloriesInStatus.String(),
		PermissionDenied: denied,
	}
}

// balanceErrorBody maps a core error to an HTTP status and a stable error code.
func balanceErrorBody(err error) (int, gin.H) {
	var verr *energy.ValidationError
	switch {
	case errors.Is(err, energy.ErrProfileNotConfigured):
		return http.StatusConflict, gin.H{"error": "profile not configured", "code": "profile_not_configured"}
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, gin.H{
			"error": verr.Error(), "code": "validation",
			"field": verr.Field, "min": verr.Min, "max": verr.Max,
		}
	case errors.Is(err, energy.ErrFutureDate):
		return http.StatusBadRequest, gin.H{"error": "date is in the future", "code": "future_date"}
	case errors.Is(err, energy.ErrProfileFeedLost):
		return http.StatusServiceUnavailable, gin.H{"error": "profile updates unavailable, reconnect", "code": "profile_feed_lost"}
	}
	return http.StatusInternalServerError, gin.H{"error": "failed to compute energy balance", "code": "internal"}
}

func errorIsDenied(err error) bool { return errors.Is(err, energy.ErrPermissionDenied) }

// parseDay reads ?date=YYYY-MM-DD in the engine's time zone, defaulting to
// today. It writes a 400 and returns false on a malformed date.
func parseDay(c *gin.Context, engine *energy.Engine) (time.Time, bool) {
	s := c.Query("date")
	if s == "" {
		return energy.StartOfDay(engine.Now(), engine.Location()), true
	}
	day, err := time.ParseInLocation("2006-01-02", s, engine.Location())
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

// getEnergyBalance computes one day's balance once. For today the result is a
// snapshot from local midnight up to now.
// GET /api/energy-balance?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getEnergyBalance(c *gin.Context) {
	engine := h.engineFor(c.GetInt("user_id"))
	day, ok := parseDay(c, engine)
	if !ok {
		return
	}
	mode, err := engine.ModeFor(day)
	if err == nil {
		var b energy.EnergyBalance
		b, err = engine.Compute(c.Request.Context(), day)
		if h.metrics != nil {
			h.metrics.observeUpdate(energy.Update{Date: day, Mode: mode, Balance: b, Err: err})
		}
		if err == nil {
			c.JSON(http.StatusOK, newEnergyBalanceResponse(b, mode))
			return
		}
	}
	status, body := balanceErrorBody(err)
	c.JSON(status, body)
}

// streamEnergyBalance sends balances as server-sent events. Today is observed
// live and keeps streaming recomputed balances until the client disconnects;
// a past day sends a single event and the stream ends.
// GET /api/energy-balance/stream?date=YYYY-MM-DD (defaults to today).
func (h *Handler) streamEnergyBalance(c *gin.Context) {
	engine := h.engineFor(c.GetInt("user_id"))
	day, ok := parseDay(c, engine)
	if !ok {
		return
	}

	agg := energy.NewAggregator(c.Request.Context(), engine)
	defer agg.Close()
	if err := agg.Select(day); err != nil {
		status, body := balanceErrorBody(err)
		c.JSON(status, body)
		return
	}
	if h.metrics != nil && agg.State().Mode == energy.ModeLive {
		h.metrics.LiveSubscriptions.Inc()
		defer h.metrics.LiveSubscriptions.Dec()
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	updates := agg.Updates()
	c.Stream(func(io.Writer) bool {
		select {
		case u, ok := <-updates:
			if !ok {
				return false
			}
			if h.metrics != nil {
				h.metrics.observeUpdate(u)
			}
			if u.Err != nil {
				_, body := balanceErrorBody(u.Err)
				c.SSEvent("error", body)
			} else {
				c.SSEvent("balance", newEnergyBalanceResponse(u.Balance, u.Mode))
			}
			// Live errors are transient; a profile fix recovers the stream.
			// A lost profile feed does not recover, so the client must reconnect.
			return u.Mode == energy.ModeLive && !errors.Is(u.Err, energy.ErrProfileFeedLost)
		case <-c.Request.Context().Done():
			return false
		}
	})
}
