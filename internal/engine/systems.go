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

// SetMaintenance puts a system into maintenance or brings it back.
//
// Entering maintenance works from any status and evicts the current holder, who is
// sent a system.evicted event. The holder's request keeps its allocatedSystems.
// Leaving maintenance only applies to systems in maintenance; otherwise the system
// is returned unchanged.
func (e *Engine) SetMaintenance(ctx context.Context, caller model.Identity, systemID int, on bool) (sys *model.System, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("set_maintenance", start, err) }(time.Now())

	if err := requireAdmin(caller, "set maintenance"); err != nil {
		return nil, err
	}
	current, err := e.store.GetSystem(ctx, systemID)
	if err != nil {
		return nil, err
	}

	pre := store.Precondition{Status: current.Status, Version: current.Version}
	if !on {
		if current.Status != model.SystemMaintenance {
			return current, nil
		}
		sys, err = e.store.SetSystemStatus(ctx, systemID, pre, model.SystemAvailable, nil)
		if err != nil {
			return nil, err
		}
		e.logSystem("set_maintenance", systemID, caller).Info("system back in service")
		e.publisher.Publish()
		return sys, nil
	}

	if current.Status == model.SystemMaintenance {
		return current, nil
	}
	evicted := current.Assignment()
	sys, err = e.store.SetSystemStatus(ctx, systemID, pre, model.SystemMaintenance, nil)
	if err != nil {
		return nil, err
	}

	entry := e.logSystem("set_maintenance", systemID, caller)
	if evicted != nil {
		entry = entry.WithField("evicted", evicted.RequesterLoginID)
	}
	entry.Info("system entered maintenance")
	e.publisher.Publish()

	if evicted != nil {
		e.notify(model.EventSystemEvicted, evicted.RequesterLoginID, "", []int{systemID},
			fmt.Sprintf("System %d was taken out of service for maintenance; your %s slot on it was cleared.",
				systemID, evicted.TimeSlot))
	}
	return sys, nil
}

// CheckIn marks a reserved system as occupied by its holder.
func (e *Engine) CheckIn(ctx context.Context, caller model.Identity, systemID int) (sys *model.System, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("check_in", start, err) }(time.Now())

	if err := requireAdmin(caller, "check in"); err != nil {
		return nil, err
	}
	current, err := e.store.GetSystem(ctx, systemID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.SystemReserved {
		return nil, fmt.Errorf("system %d is %s, not reserved: %w", systemID, current.Status, model.ErrInvalidTransition)
	}

	sys, err = e.store.SetSystemStatus(ctx, systemID,
		store.Precondition{Status: current.Status, Version: current.Version},
		model.SystemOccupied, current.Assignment())
	if err != nil {
		return nil, err
	}
	e.logSystem("check_in", systemID, caller).Info("system occupied")
	e.publisher.Publish()
	return sys, nil
}

// Release frees a reserved or occupied system and clears its assignment.
func (e *Engine) Release(ctx context.Context, caller model.Identity, systemID int) (sys *model.System, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("release", start, err) }(time.Now())

	if err := requireAdmin(caller, "release"); err != nil {
		return nil, err
	}
	current, err := e.store.GetSystem(ctx, systemID)
	if err != nil {
		return nil, err
	}
	if !current.Status.Assigned() {
		return nil, fmt.Errorf("system %d is %s, nothing to release: %w", systemID, current.Status, model.ErrInvalidTransition)
	}
	holder := current.Assignment()

	sys, err = e.store.SetSystemStatus(ctx, systemID,
		store.Precondition{Status: current.Status, Version: current.Version},
		model.SystemAvailable, nil)
	if err != nil {
		return nil, err
	}
	e.logSystem("release", systemID, caller).Info("system released")
	e.publisher.Publish()

	if holder != nil {
		e.notify(model.EventSystemReleased, holder.RequesterLoginID, "", []int{systemID},
			fmt.Sprintf("System %d has been released.", systemID))
	}
	return sys, nil
}

func (e *Engine) logSystem(op string, systemID int, caller model.Identity) *logrus.Entry {
	return e.log.WithFields(logrus.Fields{
		"op":        op,
		"system_id": systemID,
		"admin":     caller.LoginID,
	})
}
