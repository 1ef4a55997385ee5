package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"lg/energy-balance-api/internal/energy"
)

// setupValidationTest registers write routes on a Handler without a store.
// Every request here must be rejected before the store is touched.
func setupValidationTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{engine: energy.Config{Location: time.UTC}}
	router := gin.New()
	withUser := func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Next()
	}
	router.POST("/api/food-intake", withUser, h.createFoodIntake)
	router.GET("/api/food-intake", withUser, h.listFoodIntake)
	router.DELETE("/api/food-intake/:id", withUser, h.deleteFoodIntake)
	router.POST("/api/exercise-sessions", withUser, h.createExerciseSession)
	router.POST("/api/step-samples", withUser, h.upsertStepSample)
	router.PUT("/api/profile", withUser, h.putProfile)
	router.PUT("/api/data-sources", withUser, h.putDataSources)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

/* ─── Request validation ─────────────────────────────────────────────── */

// TestWriteRoutes_RejectInvalidInput checks each write endpoint's guards.
func TestWriteRoutes_RejectInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"food malformed json", "POST", "/api/food-intake", `{`, http.StatusBadRequest},
		{"food missing name", "POST", "/api/food-intake", `{"consumed_at":"2026-06-15T08:00:00Z","energy_kcal":300}`, http.StatusBadRequest},
		{"food missing time", "POST", "/api/food-intake", `{"item_name":"Oats","energy_kcal":300}`, http.StatusBadRequest},
		{"food negative kcal", "POST", "/api/food-intake", `{"item_name":"Oats","consumed_at":"2026-06-15T08:00:00Z","energy_kcal":-1}`, http.StatusBadRequest},
		{"food huge kcal", "POST", "/api/food-intake", `{"item_name":"Oats","consumed_at":"2026-06-15T08:00:00Z","energy_kcal":20000}`, http.StatusBadRequest},
		{"food list bad date", "GET", "/api/food-intake?date=yesterday", ``, http.StatusBadRequest},
		{"food delete bad id", "DELETE", "/api/food-intake/abc", ``, http.StatusBadRequest},
		{"session inverted", "POST", "/api/exercise-sessions", `{"name":"Run","start_time":"2026-06-15T08:00:00Z","end_time":"2026-06-15T07:00:00Z","energy_kcal":300}`, http.StatusBadRequest},
		{"session empty interval", "POST", "/api/exercise-sessions", `{"name":"Run","start_time":"2026-06-15T08:00:00Z","end_time":"2026-06-15T08:00:00Z","energy_kcal":300}`, http.StatusBadRequest},
		{"session missing name", "POST", "/api/exercise-sessions", `{"start_time":"2026-06-15T07:00:00Z","end_time":"2026-06-15T08:00:00Z"}`, http.StatusBadRequest},
		{"steps inverted", "POST", "/api/step-samples", `{"start_time":"2026-06-15T08:00:00Z","end_time":"2026-06-15T07:00:00Z","steps":100}`, http.StatusBadRequest},
		{"steps negative", "POST", "/api/step-samples", `{"start_time":"2026-06-15T07:00:00Z","end_time":"2026-06-15T08:00:00Z","steps":-5}`, http.StatusBadRequest},
		{"profile unknown sex", "PUT", "/api/profile", `{"sex":"other","date_of_birth":"1990-01-01","weight_kg":70,"height_cm":175}`, http.StatusBadRequest},
		{"profile missing dob", "PUT", "/api/profile", `{"sex":"female","weight_kg":70,"height_cm":175}`, http.StatusBadRequest},
		{"profile weight too low", "PUT", "/api/profile", `{"sex":"female","date_of_birth":"1990-01-01","weight_kg":29.9,"height_cm":175}`, http.StatusUnprocessableEntity},
		{"profile too young", "PUT", "/api/profile", `{"sex":"male","date_of_birth":"2020-01-01","weight_kg":70,"height_cm":175}`, http.StatusUnprocessableEntity},
		{"grants empty", "PUT", "/api/data-sources", `[]`, http.StatusBadRequest},
		{"grants unknown source", "PUT", "/api/data-sources", `[{"source":"steps","granted":true},{"source":"sleep","granted":false}]`, http.StatusBadRequest},
	}

	router := setupValidationTest()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

// TestPutProfileRequest_NormalizesSex accepts any casing and returns the
// canonical domain value.
func TestPutProfileRequest_NormalizesSex(t *testing.T) {
	var req putProfileRequest
	req.Sex = " Female "
	req.DateOfBirth.Time = time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)
	req.WeightKG, req.HeightCM = 62, 168

	p, err := req.validate(testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Sex != energy.SexFemale || p.Sex.String() != "female" {
		t.Errorf("expected female, got %v", p.Sex)
	}
}

/* ─── Auth ───────────────────────────────────────────────────────────── */

// TestAuthMiddleware_CachedToken resolves a cached token without a store and
// rejects requests without a bearer header.
func TestAuthMiddleware_CachedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{tokens: otter.Must(&otter.Options[string, int]{MaximumSize: 10})}
	h.tokens.Set("tok-123", 42)

	router := gin.New()
	router.GET("/api/whoami", h.authMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("user_id")})
	})

	req := httptest.NewRequest("GET", "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user_id":42`) {
		t.Fatalf("expected user 42, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without header, got %d", w.Code)
	}
}

/* ─── Metrics ────────────────────────────────────────────────────────── */

// TestInstrumentedProvider counts calls by source and outcome.
func TestInstrumentedProvider(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	p := m.instrument(stubActivity{steps: 10, foodErr: energy.ErrPermissionDenied})

	p.StepCount(t.Context(), energy.TimeWindow{}, nil)
	p.FoodIntake(t.Context(), energy.TimeWindow{})

	if got := testutil.ToFloat64(m.SourceCalls.WithLabelValues("steps", "ok")); got != 1 {
		t.Errorf("expected 1 ok steps call, got %v", got)
	}
	if got := testutil.ToFloat64(m.SourceCalls.WithLabelValues("food", "permission_denied")); got != 1 {
		t.Errorf("expected 1 denied food call, got %v", got)
	}
}

// TestMetricsEndpoint exposes registered collectors in text format.
func TestMetricsEndpoint(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	m.observeQuery("step_count", 5*time.Millisecond, nil)

	w := httptest.NewRecorder()
	m.handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `energy_store_query_duration_seconds_count{op="step_count",result="ok"} 1`) {
		t.Errorf("expected query histogram in output, got %s", w.Body.String())
	}
}
