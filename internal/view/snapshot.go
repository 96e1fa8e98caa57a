// Package view derives read models from a point-in-time copy of systems and requests
// and pushes fresh copies to subscribers whenever the underlying data changes.
package view

import (
	"sort"
	"time"

	"lab-allocation-backend/internal/model"
)

// Snapshot is a consistent-enough copy of every system and request. Revision is the
// store revision observed before the rows were read.
type Snapshot struct {
	Systems  []model.System
	Requests []model.Request
	Revision int64
	TakenAt  time.Time
}

// Stats is the dashboard summary of the inventory.
type Stats struct {
	Total            int                                           `json:"total"`
	ByStatus         map[model.SystemStatus]int                    `json:"byStatus"`
	ByCategory       map[model.Category]int                        `json:"byCategory"`
	ByCategoryStatus map[model.Category]map[model.SystemStatus]int `json:"byCategoryStatus"`
	PendingRequests  int                                           `json:"pendingRequests"`
}

// ScheduleEntry is one approved request on a given day together with its systems.
type ScheduleEntry struct {
	Request model.Request
	Systems []model.System
}

// Stats counts systems per status and category. Every known status and category
// is present in the maps, even with a zero count.
func (s Snapshot) Stats() Stats {
	st := Stats{
		Total:            len(s.Systems),
		ByStatus:         make(map[model.SystemStatus]int, len(model.AllSystemStatuses)),
		ByCategory:       make(map[model.Category]int, 2),
		ByCategoryStatus: make(map[model.Category]map[model.SystemStatus]int, 2),
	}
	for _, cat := range []model.Category{model.CategoryHighTier, model.CategoryStandardTier} {
		st.ByCategory[cat] = 0
		st.ByCategoryStatus[cat] = make(map[model.SystemStatus]int, len(model.AllSystemStatuses))
		for _, status := range model.AllSystemStatuses {
			st.ByCategoryStatus[cat][status] = 0
		}
	}
	for _, status := range model.AllSystemStatuses {
		st.ByStatus[status] = 0
	}

	for _, sys := range s.Systems {
		st.ByStatus[sys.Status]++
		st.ByCategory[sys.Category]++
		if _, ok := st.ByCategoryStatus[sys.Category]; !ok {
			st.ByCategoryStatus[sys.Category] = make(map[model.SystemStatus]int)
		}
		st.ByCategoryStatus[sys.Category][sys.Status]++
	}
	for _, req := range s.Requests {
		if req.Status == model.RequestPending {
			st.PendingRequests++
		}
	}
	return st
}

// MyRequests returns the requests submitted by uid, newest first.
func (s Snapshot) MyRequests(uid string) []model.Request {
	out := make([]model.Request, 0)
	for _, req := range s.Requests {
		if req.RequesterUID == uid {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out
}

// PendingQueue returns every pending request, newest first.
func (s Snapshot) PendingQueue() []model.Request {
	out := make([]model.Request, 0)
	for _, req := range s.Requests {
		if req.Status == model.RequestPending {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out
}

// Schedule returns the approved requests for date ordered by start time. Each entry
// lists the current state of the systems the request was allocated.
func (s Snapshot) Schedule(date string) []ScheduleEntry {
	byID := make(map[int]model.System, len(s.Systems))
	for _, sys := range s.Systems {
		byID[sys.ID] = sys
	}

	out := make([]ScheduleEntry, 0)
	for _, req := range s.Requests {
		if req.Status != model.RequestApproved || req.Date != date {
			continue
		}
		entry := ScheduleEntry{Request: req, Systems: make([]model.System, 0, len(req.AllocatedSystems))}
		for _, id := range req.AllocatedSystems {
			if sys, ok := byID[id]; ok {
				entry.Systems = append(entry.Systems, sys)
			}
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Request, out[j].Request
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.SubmittedAt.Before(b.SubmittedAt)
	})
	return out
}

// System returns the system with id, if the snapshot holds it.
func (s Snapshot) System(id int) (model.System, bool) {
	for _, sys := range s.Systems {
		if sys.ID == id {
			return sys, true
		}
	}
	return model.System{}, false
}

func sortNewestFirst(reqs []model.Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].SubmittedAt.After(reqs[j].SubmittedAt)
	})
}
