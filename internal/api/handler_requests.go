package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/parse"
)

type createRequestBody struct {
	Purpose       string `json:"purpose" binding:"required"`
	Date          string `json:"date" binding:"required"`
	StartTime     string `json:"startTime" binding:"required"`
	EndTime       string `json:"endTime" binding:"required"`
	ExpectedCount *int   `json:"expectedCount"`
}

// CreateRequest submits a new request for the caller.
func (h *Handler) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.engine.CreateRequest(c.Request.Context(), caller(c), model.RequestDraft{
		Purpose:       body.Purpose,
		Date:          body.Date,
		StartTime:     body.StartTime,
		EndTime:       body.EndTime,
		ExpectedCount: body.ExpectedCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRequestResponse(*req))
}

// ListMyRequests returns the caller's requests, newest first.
func (h *Handler) ListMyRequests(c *gin.Context) {
	reqs, err := h.store.ListRequestsByRequester(c.Request.Context(), caller(c).UID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRequestResponses(reqs))
}

// ListPendingRequests returns the review queue, newest first.
func (h *Handler) ListPendingRequests(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRequestResponses(snap.PendingQueue()))
}

// CancelRequest withdraws one of the caller's pending requests.
func (h *Handler) CancelRequest(c *gin.Context) {
	req, err := h.engine.Cancel(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRequestResponse(*req))
}

type allocateBody struct {
	Systems     []int  `json:"systems"`
	SystemsText string `json:"systemsText"`
	TimeSlot    string `json:"timeSlot" binding:"required"`
}

// AllocateRequest approves a request and reserves systems for it. Systems may be given
// as a JSON array, as free text such as "1, 2 15", or both.
func (h *Handler) AllocateRequest(c *gin.Context) {
	var body allocateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	systems := body.Systems
	if body.SystemsText != "" {
		parsed, err := parse.ParseSystemIDs(body.SystemsText)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		systems = append(systems, parsed...)
	}

	res, err := h.engine.Allocate(c.Request.Context(), caller(c), c.Param("id"), systems, body.TimeSlot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocationResponse{
		Request: newRequestResponse(*res.Request),
		Systems: newSystemResponses(res.Systems),
	})
}

// ApproveRequest approves a request without reserving systems.
func (h *Handler) ApproveRequest(c *gin.Context) {
	req, err := h.engine.ApproveWithoutAllocation(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRequestResponse(*req))
}

// RejectRequest declines a request.
func (h *Handler) RejectRequest(c *gin.Context) {
	req, err := h.engine.Reject(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRequestResponse(*req))
}
