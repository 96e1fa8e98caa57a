package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/view"
)

func TestObserveOperation(t *testing.T) {
	m := getMetrics()
	okBefore := testutil.ToFloat64(m.operations.WithLabelValues("allocate", "ok"))
	conflictBefore := testutil.ToFloat64(m.operations.WithLabelValues("allocate", "conflict"))

	ObserveOperation("allocate", time.Now(), nil)
	ObserveOperation("allocate", time.Now(), errors.Join(errors.New("system 1 changed"), model.ErrConflict))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.operations.WithLabelValues("allocate", "ok")))
	assert.Equal(t, conflictBefore+1, testutil.ToFloat64(m.operations.WithLabelValues("allocate", "conflict")))
}

func TestObserveSnapshot(t *testing.T) {
	ObserveSnapshot(view.Snapshot{
		Systems: []model.System{
			{ID: 1, Category: model.CategoryHighTier, Status: model.SystemMaintenance},
			{ID: 15, Category: model.CategoryStandardTier, Status: model.SystemAvailable},
			{ID: 16, Category: model.CategoryStandardTier, Status: model.SystemAvailable},
		},
		Requests: []model.Request{{Status: model.RequestPending}, {Status: model.RequestApproved}},
	})

	m := getMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.systems.WithLabelValues("high_tier", "maintenance")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.systems.WithLabelValues("high_tier", "available")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.systems.WithLabelValues("standard_tier", "available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pendingRequests))
}

func TestObserveNotification(t *testing.T) {
	before := testutil.ToFloat64(getMetrics().notifications.WithLabelValues(NotifyDropped))
	ObserveNotification(NotifyDropped)
	assert.Equal(t, before+1, testutil.ToFloat64(getMetrics().notifications.WithLabelValues(NotifyDropped)))
}
