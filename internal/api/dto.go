package api

import (
	"time"

	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/view"
)

type systemResponse struct {
	ID         int                `json:"id"`
	Category   model.Category     `json:"category"`
	Status     model.SystemStatus `json:"status"`
	Assignment *model.Assignment  `json:"assignment"`
	Version    int64              `json:"version"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func newSystemResponse(s model.System) systemResponse {
	return systemResponse{
		ID:         s.ID,
		Category:   s.Category,
		Status:     s.Status,
		Assignment: s.Assignment(),
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
	}
}

func newSystemResponses(systems []model.System) []systemResponse {
	out := make([]systemResponse, len(systems))
	for i, s := range systems {
		out[i] = newSystemResponse(s)
	}
	return out
}

type requestResponse struct {
	ID               string              `json:"id"`
	RequesterUID     string              `json:"requesterUid"`
	RequesterLoginID string              `json:"requesterLoginId"`
	RequesterName    string              `json:"requesterName"`
	RequesterRole    model.Role          `json:"requesterRole"`
	Kind             model.RequestKind   `json:"kind"`
	Purpose          string              `json:"purpose"`
	Date             string              `json:"date"`
	StartTime        string              `json:"startTime"`
	EndTime          string              `json:"endTime"`
	ExpectedCount    *int                `json:"expectedCount,omitempty"`
	Status           model.RequestStatus `json:"status"`
	AllocatedSystems []int               `json:"allocatedSystems,omitempty"`
	AllocatedSlot    string              `json:"allocatedSlot,omitempty"`
	SubmittedAt      time.Time           `json:"submittedAt"`
	ReviewedAt       *time.Time          `json:"reviewedAt,omitempty"`
	ReviewerLoginID  string              `json:"reviewerLoginId,omitempty"`
	Version          int64               `json:"version"`
}

func newRequestResponse(r model.Request) requestResponse {
	return requestResponse{
		ID:               r.ID,
		RequesterUID:     r.RequesterUID,
		RequesterLoginID: r.RequesterLoginID,
		RequesterName:    r.RequesterName,
		RequesterRole:    r.RequesterRole,
		Kind:             r.Kind,
		Purpose:          r.Purpose,
		Date:             r.Date,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		ExpectedCount:    r.ExpectedCount,
		Status:           r.Status,
		AllocatedSystems: r.AllocatedSystems,
		AllocatedSlot:    r.AllocatedSlot,
		SubmittedAt:      r.SubmittedAt,
		ReviewedAt:       r.ReviewedAt,
		ReviewerLoginID:  r.ReviewerLoginID,
		Version:          r.Version,
	}
}

func newRequestResponses(reqs []model.Request) []requestResponse {
	out := make([]requestResponse, len(reqs))
	for i, r := range reqs {
		out[i] = newRequestResponse(r)
	}
	return out
}

type allocationResponse struct {
	Request requestResponse  `json:"request"`
	Systems []systemResponse `json:"systems"`
}

type scheduleEntryResponse struct {
	Request requestResponse  `json:"request"`
	Systems []systemResponse `json:"systems"`
}

func newScheduleResponse(entries []view.ScheduleEntry) []scheduleEntryResponse {
	out := make([]scheduleEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = scheduleEntryResponse{
			Request: newRequestResponse(e.Request),
			Systems: newSystemResponses(e.Systems),
		}
	}
	return out
}
