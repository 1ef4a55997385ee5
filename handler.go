package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maypok86/otter/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lg/energy-balance-api/internal/energy"
	"lg/energy-balance-api/internal/store"
)

// sourceFactory builds the core's read interfaces for one user.
type sourceFactory func(userID int) (energy.ProfileStore, energy.ActivityProvider)

// Handler holds shared dependencies (store, engine config, caches) for all route handlers.
type Handler struct {
	store   *store.Store
	sources sourceFactory // overridable for tests
	engine  energy.Config
	metrics *metrics
	tokens  *otter.Cache[string, int]
}

func newHandler(st *store.Store, cfg config, m *metrics) *Handler {
	h := &Handler{
		store:   st,
		metrics: m,
		engine: energy.Config{
			PollInterval: cfg.PollInterval,
			Location:     cfg.Location,
			Logger:       log.Logger,
		},
		tokens: otter.Must(&otter.Options[string, int]{
			MaximumSize:      10_000,
			ExpiryCalculator: otter.ExpiryWriting[string, int](cfg.AuthCacheTTL),
		}),
	}
	h.sources = func(userID int) (energy.ProfileStore, energy.ActivityProvider) {
		return st.ProfileSource(userID), st.ActivitySource(userID)
	}
	return h
}

// engineFor wires a core engine to the user's data sources.
func (h *Handler) engineFor(userID int) *energy.Engine {
	profiles, activity := h.sources(userID)
	if h.metrics != nil {
		activity = h.metrics.instrument(activity)
	}
	return energy.NewEngine(profiles, activity, h.engine)
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// healthz reports whether the database is reachable.
// GET /healthz (public).
func (h *Handler) healthz(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Pool().Ping(c.Request.Context()); err != nil {
			apiError(c, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger writes one access-log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Info()
		if c.Writer.Status() >= 500 {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http_request")
	}
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.POST("/api/login", h.login)
	router.GET("/healthz", h.healthz)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.handler()))
	}

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/energy-balance", h.getEnergyBalance)
	api.GET("/energy-balance/stream", h.streamEnergyBalance)
	api.GET("/profile", h.getProfile)
	api.PUT("/profile", h.putProfile)
	api.GET("/data-sources", h.getDataSources)
	api.PUT("/data-sources", h.putDataSources)
	api.GET("/food-intake", h.listFoodIntake)
	api.POST("/food-intake", h.createFoodIntake)
	api.DELETE("/food-intake/:id", h.deleteFoodIntake)
	api.GET("/exercise-sessions", h.listExerciseSessions)
	api.POST("/exercise-sessions", h.createExerciseSession)
	api.DELETE("/exercise-sessions/:id", h.deleteExerciseSession)
	api.POST("/step-samples", h.upsertStepSample)
}

// setupLogging configures the global zerolog logger from LOG_LEVEL.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
}
