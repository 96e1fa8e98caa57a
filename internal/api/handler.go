package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"lab-allocation-backend/internal/engine"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/mw"
	"lab-allocation-backend/internal/store"
	"lab-allocation-backend/internal/view"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine    *engine.Engine
	store     store.Store
	projector *view.Projector
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(e *engine.Engine, s store.Store, projector *view.Projector, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		engine:    e,
		store:     s,
		projector: projector,
		webpush:   webpushOptions,
	}
}

// caller returns the identity placed on the context by mw.Authenticate.
func caller(c *gin.Context) model.Identity {
	identity, _ := mw.CurrentIdentity(c)
	return identity
}

func systemIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		badRequest(c, "system id must be a positive integer")
		return 0, false
	}
	return id, true
}

// snapshot loads a fresh view snapshot, writing the error response on failure.
func (h *Handler) snapshot(c *gin.Context) (view.Snapshot, bool) {
	snap, err := h.projector.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return view.Snapshot{}, false
	}
	return snap, true
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	rev, err := h.store.Revision(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "revision": rev})
}
