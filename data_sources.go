package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/energy-balance-api/internal/store"
)

// getDataSources returns the access grant for every data source.
// GET /api/data-sources.
func (h *Handler) getDataSources(c *gin.Context) {
	grants, err := h.store.Grants(c.Request.Context(), c.GetInt("user_id"))
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch data sources")
		return
	}
	c.JSON(http.StatusOK, grants)
}

// putDataSources grants or revokes access per source. A revoked source is
// reported as permission denied in the energy balance instead of as no data.
// PUT /api/data-sources. Body: [{ "source": "steps", "granted": false }, ...].
func (h *Handler) putDataSources(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body []store.Grant
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body) == 0 {
		apiError(c, http.StatusBadRequest, "no data sources to update")
		return
	}
	// Validate every entry before writing any, so a bad source doesn't leave a partial update.
	for _, g := range body {
		if !store.ValidSource(g.Source) {
			apiError(c, http.StatusBadRequest, "source must be one of: steps, exercise, food")
			return
		}
	}

	for _, g := range body {
		if err := h.store.SetGrant(c.Request.Context(), userID, g.Source, g.Granted); err != nil {
			apiError(c, http.StatusInternalServerError, "failed to update data sources")
			return
		}
	}

	h.getDataSources(c)
}
