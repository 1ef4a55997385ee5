package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/energy-balance-api/internal/energy"
	"lg/energy-balance-api/internal/store"
)

// profileResponse is the stored profile plus the BMR it yields today, when
// the profile is complete and valid.
type profileResponse struct {
	store.Profile
	BMR        *float64 `json:"bmr"`
	Configured bool     `json:"configured"`
}

func (h *Handler) location() *time.Location {
	if h.engine.Location != nil {
		return h.engine.Location
	}
	return time.Local
}

// getProfile returns the biometric profile for the authenticated user.
// GET /api/profile. A user who never saved one gets an empty, unconfigured profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := h.store.Profile(c.Request.Context(), userID)
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusOK, profileResponse{Profile: store.Profile{UserID: userID}})
		return
	}
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	resp := profileResponse{Profile: p}
	if up, err := p.ToDomain(); err == nil && up != nil {
		resp.Configured = true
		if bmr, err := energy.BMR(*up, time.Now().In(h.location())); err == nil {
			resp.BMR = &bmr
		}
	}
	c.JSON(http.StatusOK, resp)
}

// putProfileRequest requires every field: the core only accepts a complete profile.
type putProfileRequest struct {
	Sex         string         `json:"sex"`
	DateOfBirth store.DateOnly `json:"date_of_birth"`
	WeightKG    float64        `json:"weight_kg"`
	HeightCM    float64        `json:"height_cm"`
}

// validate checks the request against the same ranges BMR enforces, so an
// invalid profile is rejected here rather than failing every balance later.
func (r putProfileRequest) validate(today time.Time) (energy.UserProfile, error) {
	sex, err := energy.ParseSex(r.Sex)
	if err != nil {
		return energy.UserProfile{}, err
	}
	if r.DateOfBirth.IsZero() {
		return energy.UserProfile{}, errors.New("date_of_birth is required")
	}
	p := energy.UserProfile{
		Sex:       sex,
		BirthDate: r.DateOfBirth.Time,
		WeightKG:  r.WeightKG,
		HeightCM:  r.HeightCM,
	}
	return p, p.Validate(today)
}

// putProfile creates or replaces the profile. Open live streams pick up the
// change immediately through the store's change notification.
// PUT /api/profile. Body: { "sex", "date_of_birth", "weight_kg", "height_cm" }.
func (h *Handler) putProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body putProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	up, err := body.validate(time.Now().In(h.location()))
	if err != nil {
		var verr *energy.ValidationError
		if errors.As(err, &verr) {
			status, resp := balanceErrorBody(err)
			c.JSON(status, resp)
			return
		}
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	sex := up.Sex.String()
	saved, err := h.store.UpsertProfile(c.Request.Context(), store.Profile{
		UserID:      userID,
		Sex:         &sex,
		DateOfBirth: &body.DateOfBirth,
		WeightKG:    &body.WeightKG,
		HeightCM:    &body.HeightCM,
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save profile")
		return
	}
	c.JSON(http.StatusOK, saved)
}
