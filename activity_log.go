package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lg/energy-balance-api/internal/energy"
	"lg/energy-balance-api/internal/store"
)

// maxEntryKcal bounds a single food item or exercise session. Anything larger
// is a unit mistake (kJ, or a whole week).
const maxEntryKcal = 10000

// dayWindowParam reads ?date=YYYY-MM-DD (default today) as a local-day window.
func (h *Handler) dayWindowParam(c *gin.Context) (energy.TimeWindow, bool) {
	loc := h.location()
	day := energy.StartOfDay(time.Now(), loc)
	if s := c.Query("date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return energy.TimeWindow{}, false
		}
		day = t
	}
	return energy.DayWindow(day, loc), true
}

// idParam parses the :id path parameter.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apiError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

/* ─── Food intake ────────────────────────────────────────────────────── */

// listFoodIntake returns food records consumed on the given local day.
// GET /api/food-intake?date=YYYY-MM-DD (defaults to today).
func (h *Handler) listFoodIntake(c *gin.Context) {
	window, ok := h.dayWindowParam(c)
	if !ok {
		return
	}
	items, err := h.store.FoodIntake(c.Request.Context(), c.GetInt("user_id"), window)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch food intake")
		return
	}
	// Ensure items is an empty array (not null) in JSON
	if items == nil {
		items = []store.FoodIntake{}
	}
	c.JSON(http.StatusOK, items)
}

// createFoodIntake records one consumed item.
// POST /api/food-intake. Body: { "item_name", "consumed_at", "energy_kcal" }.
func (h *Handler) createFoodIntake(c *gin.Context) {
	var body struct {
		ItemName   string    `json:"item_name"`
		ConsumedAt time.Time `json:"consumed_at"`
		EnergyKcal float64   `json:"energy_kcal"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.ItemName = strings.TrimSpace(body.ItemName)
	if body.ItemName == "" {
		apiError(c, http.StatusBadRequest, "item_name is required")
		return
	}
	if body.ConsumedAt.IsZero() {
		apiError(c, http.StatusBadRequest, "consumed_at is required")
		return
	}
	if body.EnergyKcal < 0 || body.EnergyKcal > maxEntryKcal {
		apiError(c, http.StatusBadRequest, "energy_kcal must be between 0 and 10000")
		return
	}

	item, err := h.store.InsertFoodIntake(c.Request.Context(), store.FoodIntake{
		UserID:     c.GetInt("user_id"),
		ItemName:   body.ItemName,
		ConsumedAt: body.ConsumedAt,
		EnergyKcal: body.EnergyKcal,
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create food intake")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// deleteFoodIntake removes a food record owned by the user.
// DELETE /api/food-intake/:id.
func (h *Handler) deleteFoodIntake(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleted, err := h.store.DeleteFoodIntake(c.Request.Context(), c.GetInt("user_id"), id)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete food intake")
		return
	}
	if !deleted {
		apiError(c, http.StatusNotFound, "food intake not found")
		return
	}
	c.Status(http.StatusNoContent)
}

/* ─── Exercise sessions ──────────────────────────────────────────────── */

// listExerciseSessions returns sessions overlapping the given local day.
// GET /api/exercise-sessions?date=YYYY-MM-DD (defaults to today).
func (h *Handler) listExerciseSessions(c *gin.Context) {
	window, ok := h.dayWindowParam(c)
	if !ok {
		return
	}
	sessions, err := h.store.ExerciseSessions(c.Request.Context(), c.GetInt("user_id"), window)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch exercise sessions")
		return
	}
	if sessions == nil {
		sessions = []store.ExerciseSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

// createExerciseSession records a workout. Steps taken during it are excluded
// from NEAT so they aren't counted twice.
// POST /api/exercise-sessions. Body: { "name", "start_time", "end_time", "energy_kcal" }.
func (h *Handler) createExerciseSession(c *gin.Context) {
	var body struct {
		Name       string    `json:"name"`
		StartTime  time.Time `json:"start_time"`
		EndTime    time.Time `json:"end_time"`
		EnergyKcal float64   `json:"energy_kcal"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		apiError(c, http.StatusBadRequest, "name is required")
		return
	}
	if body.StartTime.IsZero() || !body.EndTime.After(body.StartTime) {
		apiError(c, http.StatusBadRequest, "end_time must be after start_time")
		return
	}
	if body.EnergyKcal < 0 || body.EnergyKcal > maxEntryKcal {
		apiError(c, http.StatusBadRequest, "energy_kcal must be between 0 and 10000")
		return
	}

	session, err := h.store.InsertExerciseSession(c.Request.Context(), store.ExerciseSession{
		UserID:     c.GetInt("user_id"),
		Name:       body.Name,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
		EnergyKcal: body.EnergyKcal,
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create exercise session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// deleteExerciseSession removes a session owned by the user.
// DELETE /api/exercise-sessions/:id.
func (h *Handler) deleteExerciseSession(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleted, err := h.store.DeleteExerciseSession(c.Request.Context(), c.GetInt("user_id"), id)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete exercise session")
		return
	}
	if !deleted {
		apiError(c, http.StatusNotFound, "exercise session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

/* ─── Step samples ───────────────────────────────────────────────────── */

// upsertStepSample writes the step count of one bucket [start_time, end_time).
// POST /api/step-samples. Re-posting a bucket with the same start replaces it.
func (h *Handler) upsertStepSample(c *gin.Context) {
	var body struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
		Steps     int64     `json:"steps"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.StartTime.IsZero() || !body.EndTime.After(body.StartTime) {
		apiError(c, http.StatusBadRequest, "end_time must be after start_time")
		return
	}
	if body.Steps < 0 {
		apiError(c, http.StatusBadRequest, "steps must not be negative")
		return
	}

	sample, err := h.store.UpsertStepSample(c.Request.Context(), store.StepSample{
		UserID:    c.GetInt("user_id"),
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Steps:     body.Steps,
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save step sample")
		return
	}
	c.JSON(http.StatusOK, sample)
}
