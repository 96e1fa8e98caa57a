package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListSystems returns every workstation ordered by id.
func (h *Handler) ListSystems(c *gin.Context) {
	systems, err := h.store.ListSystems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSystemResponses(systems))
}

// GetSystem returns one workstation.
func (h *Handler) GetSystem(c *gin.Context) {
	id, ok := systemIDParam(c)
	if !ok {
		return
	}
	sys, err := h.store.GetSystem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSystemResponse(*sys))
}

type maintenanceBody struct {
	InMaintenance *bool `json:"inMaintenance" binding:"required"`
}

// SetMaintenance toggles a workstation's maintenance state.
func (h *Handler) SetMaintenance(c *gin.Context) {
	id, ok := systemIDParam(c)
	if !ok {
		return
	}
	var body maintenanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	sys, err := h.engine.SetMaintenance(c.Request.Context(), caller(c), id, *body.InMaintenance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSystemResponse(*sys))
}

// CheckInSystem marks a reserved workstation as occupied.
func (h *Handler) CheckInSystem(c *gin.Context) {
	id, ok := systemIDParam(c)
	if !ok {
		return
	}
	sys, err := h.engine.CheckIn(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSystemResponse(*sys))
}

// ReleaseSystem frees a reserved or occupied workstation.
func (h *Handler) ReleaseSystem(c *gin.Context) {
	id, ok := systemIDParam(c)
	if !ok {
		return
	}
	sys, err := h.engine.Release(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSystemResponse(*sys))
}
