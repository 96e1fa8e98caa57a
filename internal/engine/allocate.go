package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lab-allocation-backend/internal/metrics"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/parse"
	"lab-allocation-backend/internal/store"
)

// Allocate reserves systemIDs for a pending request and approves it, all or nothing.
//
// Every listed system must exist and be available when checked, and must still be
// unchanged when the commit runs; otherwise nothing is written. Offending ids found
// during the check are reported together in a *model.UnavailableSystemsError.
func (e *Engine) Allocate(ctx context.Context, caller model.Identity, requestID string, systemIDs []int, timeSlot string) (result *AllocationResult, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("allocate", start, err) }(time.Now())

	if err := requireAdmin(caller, "allocate"); err != nil {
		return nil, err
	}
	ids := parse.Distinct(systemIDs)
	if len(ids) == 0 {
		return nil, model.InvalidArgumentf("at least one system is required")
	}

	req, err := e.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	slot, err := parse.ParseTimeSlot(timeSlot)
	if err != nil {
		return nil, model.InvalidArgumentf("%v", err)
	}

	claims, err := e.preflight(ctx, ids)
	if err != nil {
		return nil, err
	}

	approved, systems, err := e.store.CommitAllocation(ctx, store.AllocationCommit{
		RequestID:      req.ID,
		RequestVersion: req.Version,
		Systems:        claims,
		Assignment: model.Assignment{
			RequesterLoginID: req.RequesterLoginID,
			RequesterName:    req.RequesterName,
			TimeSlot:         slot.String(),
		},
		ReviewerLoginID: caller.LoginID,
		ReviewedAt:      e.now(),
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			e.log.WithFields(logrus.Fields{
				"op":         "allocate",
				"request_id": requestID,
				"systems":    ids,
			}).WithError(err).Warn("allocation lost a race, nothing was committed")
		}
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"op":         "allocate",
		"request_id": approved.ID,
		"systems":    ids,
		"slot":       approved.AllocatedSlot,
		"reviewer":   caller.LoginID,
	}).Info("request approved with allocation")

	e.publisher.Publish()
	e.notify(model.EventRequestAllocated, approved.RequesterLoginID, approved.ID, ids,
		fmt.Sprintf("Your request for %s was approved. Systems %s are reserved for %s.",
			approved.Date, joinIDs(ids), approved.AllocatedSlot))

	return &AllocationResult{Request: approved, Systems: systems}, nil
}

// preflight checks every id against the current inventory and returns the versions to
// claim. Missing, maintenance and already assigned systems are all collected before failing.
func (e *Engine) preflight(ctx context.Context, ids []int) ([]store.SystemClaim, error) {
	inventory, err := e.store.ListSystems(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]model.System, len(inventory))
	for _, sys := range inventory {
		byID[sys.ID] = sys
	}

	claims := make([]store.SystemClaim, 0, len(ids))
	var unavailable []int
	for _, id := range ids {
		sys, ok := byID[id]
		if !ok || sys.Status != model.SystemAvailable {
			unavailable = append(unavailable, id)
			continue
		}
		claims = append(claims, store.SystemClaim{ID: id, Version: sys.Version})
	}
	if len(unavailable) > 0 {
		return nil, &model.UnavailableSystemsError{IDs: unavailable}
	}
	return claims, nil
}
