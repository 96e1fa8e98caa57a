package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-allocation-backend/internal/parse"
)

// GetStats returns inventory counts for the dashboard.
func (h *Handler) GetStats(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Stats())
}

// GetSchedule returns the approved requests for ?date=YYYY-MM-DD ordered by start time.
func (h *Handler) GetSchedule(c *gin.Context) {
	date := c.Query("date")
	if err := parse.Date(date); err != nil {
		badRequest(c, err.Error())
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    date,
		"entries": newScheduleResponse(snap.Schedule(date)),
	})
}
