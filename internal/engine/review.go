package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lab-allocation-backend/internal/metrics"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/store"
)

// ApproveWithoutAllocation approves a pending request without reserving any systems.
func (e *Engine) ApproveWithoutAllocation(ctx context.Context, caller model.Identity, requestID string) (req *model.Request, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("approve", start, err) }(time.Now())

	if err := requireAdmin(caller, "approve"); err != nil {
		return nil, err
	}
	req, err = e.review(ctx, caller, requestID, model.RequestApproved)
	if err != nil {
		return nil, err
	}
	e.notify(model.EventRequestApproved, req.RequesterLoginID, req.ID, nil,
		fmt.Sprintf("Your request for %s %s-%s was approved.", req.Date, req.StartTime, req.EndTime))
	return req, nil
}

// Reject declines a pending request.
func (e *Engine) Reject(ctx context.Context, caller model.Identity, requestID string) (req *model.Request, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("reject", start, err) }(time.Now())

	if err := requireAdmin(caller, "reject"); err != nil {
		return nil, err
	}
	req, err = e.review(ctx, caller, requestID, model.RequestRejected)
	if err != nil {
		return nil, err
	}
	e.notify(model.EventRequestRejected, req.RequesterLoginID, req.ID, nil,
		fmt.Sprintf("Your request for %s %s-%s was rejected.", req.Date, req.StartTime, req.EndTime))
	return req, nil
}

func (e *Engine) review(ctx context.Context, caller model.Identity, requestID string, next model.RequestStatus) (*model.Request, error) {
	current, err := e.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	reviewedAt := e.now()
	req, err := e.store.TransitionRequest(ctx, requestID, model.RequestPending, next, store.RequestPatch{
		ExpectedVersion: current.Version,
		ReviewedAt:      &reviewedAt,
		ReviewerLoginID: caller.LoginID,
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"op":         "review",
		"request_id": requestID,
		"status":     next,
		"reviewer":   caller.LoginID,
	}).Info("request reviewed")
	e.publisher.Publish()
	return req, nil
}

// Cancel withdraws a pending request. Only the requester who submitted it may cancel.
func (e *Engine) Cancel(ctx context.Context, caller model.Identity, requestID string) (req *model.Request, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("cancel", start, err) }(time.Now())

	current, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if caller.UID == "" || current.RequesterUID != caller.UID {
		return nil, fmt.Errorf("request %s belongs to another requester: %w", requestID, model.ErrPermissionDenied)
	}
	if current.Status != model.RequestPending {
		return nil, fmt.Errorf("request %s is %s, not pending: %w", requestID, current.Status, model.ErrInvalidTransition)
	}

	req, err = e.store.TransitionRequest(ctx, requestID, model.RequestPending, model.RequestCancelled, store.RequestPatch{
		ExpectedVersion: current.Version,
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"op":         "cancel",
		"request_id": requestID,
		"requester":  caller.LoginID,
	}).Info("request cancelled")
	e.publisher.Publish()
	e.notify(model.EventRequestCancelled, req.RequesterLoginID, req.ID, nil,
		fmt.Sprintf("Your request for %s %s-%s was cancelled.", req.Date, req.StartTime, req.EndTime))
	return req, nil
}
