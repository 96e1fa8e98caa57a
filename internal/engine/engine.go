// Package engine owns every write to systems and requests: role checks, validation,
// state machine enforcement and the atomic allocation commit.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lab-allocation-backend/config"
	"lab-allocation-backend/internal/metrics"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/parse"
	"lab-allocation-backend/internal/store"
)

// Publisher is told that committed state changed. It must not block.
type Publisher interface {
	Publish()
}

// Notifier delivers events to requesters. It must not block.
type Notifier interface {
	Dispatch(event model.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish() {}

type nopNotifier struct{}

func (nopNotifier) Dispatch(model.Event) {}

// AllocationResult is the outcome of a successful Allocate.
type AllocationResult struct {
	Request *model.Request
	Systems []model.System
}

// Engine applies operations on behalf of an identified caller.
type Engine struct {
	store     store.Store
	publisher Publisher
	notifier  Notifier
	inventory config.InventoryConfig
	log       *logrus.Logger
	now       func() time.Time
}

// New creates an engine. A nil publisher or notifier is replaced by a no-op.
func New(st store.Store, publisher Publisher, notifier Notifier, inventory config.InventoryConfig, log *logrus.Logger) *Engine {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{
		store:     st,
		publisher: publisher,
		notifier:  notifier,
		inventory: inventory,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Seed creates the configured inventory if the store holds no systems yet.
func (e *Engine) Seed(ctx context.Context) (created int, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("seed", start, err) }(time.Now())

	created, err = e.store.SeedSystems(ctx, e.inventory.TotalSystems, e.inventory.HighTierSystems)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		e.log.WithFields(logrus.Fields{
			"total":     e.inventory.TotalSystems,
			"high_tier": e.inventory.HighTierSystems,
		}).Info("seeded system inventory")
		e.publisher.Publish()
	}
	return created, nil
}

// CreateRequest submits a new pending request for a student or faculty caller.
func (e *Engine) CreateRequest(ctx context.Context, caller model.Identity, draft model.RequestDraft) (req *model.Request, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("create_request", start, err) }(time.Now())

	if !caller.Role.Requester() {
		return nil, fmt.Errorf("role %q cannot submit requests: %w", caller.Role, model.ErrPermissionDenied)
	}

	purpose := strings.TrimSpace(draft.Purpose)
	if purpose == "" {
		return nil, model.InvalidArgumentf("purpose is required")
	}
	if err := parse.Date(draft.Date); err != nil {
		return nil, model.InvalidArgumentf("%v", err)
	}
	if err := parse.Window(draft.StartTime, draft.EndTime); err != nil {
		return nil, model.InvalidArgumentf("%v", err)
	}

	kind := model.KindForRole(caller.Role)
	expected := draft.ExpectedCount
	if kind == model.KindClass {
		if expected != nil && *expected < 1 {
			return nil, model.InvalidArgumentf("expected count must be at least 1")
		}
	} else {
		expected = nil
	}

	req = &model.Request{
		RequesterUID:     caller.UID,
		RequesterLoginID: caller.LoginID,
		RequesterName:    caller.Name,
		RequesterRole:    caller.Role,
		Kind:             kind,
		Purpose:          purpose,
		Date:             draft.Date,
		StartTime:        draft.StartTime,
		EndTime:          draft.EndTime,
		ExpectedCount:    expected,
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"op":         "create_request",
		"request_id": req.ID,
		"requester":  caller.LoginID,
		"date":       req.Date,
	}).Info("request submitted")
	e.publisher.Publish()
	return req, nil
}

func requireAdmin(caller model.Identity, op string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%s requires an administrator: %w", op, model.ErrPermissionDenied)
	}
	return nil
}

// loadPending fetches a request and fails with ErrInvalidTransition unless it is pending.
func (e *Engine) loadPending(ctx context.Context, id string) (*model.Request, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, fmt.Errorf("request %s is %s, not pending: %w", id, req.Status, model.ErrInvalidTransition)
	}
	return req, nil
}

func (e *Engine) notify(kind model.EventKind, recipient, requestID string, systems []int, message string) {
	if recipient == "" {
		return
	}
	e.notifier.Dispatch(model.Event{
		Kind:             kind,
		RequestID:        requestID,
		RecipientLoginID: recipient,
		SystemIDs:        systems,
		Message:          message,
		OccurredAt:       e.now(),
	})
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
