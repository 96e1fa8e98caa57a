package internal

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-allocation-backend/config"
	"lab-allocation-backend/internal/api"
	"lab-allocation-backend/internal/auth"
	"lab-allocation-backend/internal/dbtest"
	"lab-allocation-backend/internal/engine"
	"lab-allocation-backend/internal/metrics"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/notification"
	"lab-allocation-backend/internal/store"
	"lab-allocation-backend/internal/view"
)

const secret = "integration-secret"

var (
	admin   = model.Identity{UID: "admin-1", LoginID: "A0001", Name: "Lab Admin", Role: model.RoleAdmin}
	admin2  = model.Identity{UID: "admin-2", LoginID: "A0002", Name: "Night Admin", Role: model.RoleAdmin}
	student = model.Identity{UID: "stu-1", LoginID: "S1001", Name: "Asha Rao", Role: model.RoleStudent}
)

// labServer is the full service stack over an in-memory database, with push
// deliveries captured by a local endpoint.
type labServer struct {
	t         *testing.T
	router    *gin.Engine
	store     store.Store
	pushes    atomic.Int32
	pushURL   string
	snapshots chan view.Snapshot
}

func newLabServer(t *testing.T) *labServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := logtest.NewNullLogger()

	s := &labServer{t: t, snapshots: make(chan view.Snapshot, 16)}

	pushEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.pushes.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(pushEndpoint.Close)
	s.pushURL = pushEndpoint.URL + "/push/" + student.LoginID

	vapidPrivate, vapidPublic, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      "lab-admin@example.edu",
		TTL:             60,
	}

	s.store = store.NewGormStore(dbtest.NewDB(t), 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	pool := notification.NewWorkerPool(2, 16, s.store, webpushOptions, log)
	pool.Start(ctx)

	cacheStore := cache.New(time.Minute, time.Minute)
	projector := view.NewProjector(s.store, log, time.Second)
	projector.Subscribe(metrics.ObserveSnapshot)
	projector.Subscribe(func(view.Snapshot) { cacheStore.Flush() })
	projector.Subscribe(func(snap view.Snapshot) {
		select {
		case s.snapshots <- snap:
		default:
		}
	})
	t.Cleanup(func() {
		projector.Wait()
		cancel()
		pool.Wait()
	})

	eng := engine.New(s.store, projector, pool, config.InventoryConfig{TotalSystems: 33, HighTierSystems: 14}, log)
	_, err = eng.Seed(context.Background())
	require.NoError(t, err)

	handler := api.NewHandler(eng, s.store, projector, webpushOptions)
	s.router = api.NewRouter(handler, auth.NewResolver(secret), cacheStore, config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 60,
	})
	return s
}

func (s *labServer) call(who model.Identity, method, path string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	token, err := auth.GenerateToken(secret, who, time.Hour)
	require.NoError(s.t, err)

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type requestView struct {
	ID               string              `json:"id"`
	Status           model.RequestStatus `json:"status"`
	AllocatedSystems []int               `json:"allocatedSystems"`
	AllocatedSlot    string              `json:"allocatedSlot"`
	Version          int64               `json:"version"`
}

type systemView struct {
	ID         int                `json:"id"`
	Category   model.Category     `json:"category"`
	Status     model.SystemStatus `json:"status"`
	Assignment *model.Assignment  `json:"assignment"`
	Version    int64              `json:"version"`
}

type errorView struct {
	Code    string `json:"code"`
	Systems []int  `json:"systems"`
}

func (s *labServer) submit() requestView {
	s.t.Helper()
	var req requestView
	code := s.call(student, http.MethodPost, "/api/requests", map[string]any{
		"purpose":   "Thesis simulations",
		"date":      "2024-05-01",
		"startTime": "10:00",
		"endTime":   "12:00",
	}, &req)
	require.Equal(s.t, http.StatusCreated, code)
	require.Equal(s.t, model.RequestPending, req.Status)
	return req
}

func (s *labServer) subscribeStudent() {
	s.t.Helper()
	authKey := make([]byte, 16)
	_, err := rand.Read(authKey)
	require.NoError(s.t, err)
	_, p256dh, err := webpush.GenerateVAPIDKeys()
	require.NoError(s.t, err)

	code := s.call(student, http.MethodPut, "/api/subscriptions", map[string]string{
		"endpoint": s.pushURL,
		"p256dh":   p256dh,
		"auth":     base64.RawURLEncoding.EncodeToString(authKey),
	}, nil)
	require.Equal(s.t, http.StatusCreated, code)
}

func TestInventorySeed(t *testing.T) {
	s := newLabServer(t)

	var systems []systemView
	require.Equal(t, http.StatusOK, s.call(student, http.MethodGet, "/api/systems", nil, &systems))
	require.Len(t, systems, 33)
	for _, sys := range systems {
		expected := model.CategoryStandardTier
		if sys.ID <= 14 {
			expected = model.CategoryHighTier
		}
		assert.Equal(t, expected, sys.Category, "system %d", sys.ID)
		assert.Equal(t, model.SystemAvailable, sys.Status)
		assert.Nil(t, sys.Assignment)
	}
}

// TestAllocationLifecycle covers a student's request from submission to allocation,
// a second admin racing on the same request, and the push that reaches the student.
func TestAllocationLifecycle(t *testing.T) {
	s := newLabServer(t)
	s.subscribeStudent()
	req := s.submit()

	var alloc struct {
		Request requestView  `json:"request"`
		Systems []systemView `json:"systems"`
	}
	code := s.call(admin, http.MethodPost, "/api/requests/"+req.ID+"/allocate", map[string]any{
		"systems":  []int{1, 2},
		"timeSlot": "10:00-12:00",
	}, &alloc)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.RequestApproved, alloc.Request.Status)
	assert.Equal(t, []int{1, 2}, alloc.Request.AllocatedSystems)
	assert.Equal(t, "10:00-12:00", alloc.Request.AllocatedSlot)

	for _, id := range []int{1, 2} {
		sys, err := s.store.GetSystem(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.SystemReserved, sys.Status)
		require.NotNil(t, sys.Assignment())
		assert.Equal(t, model.Assignment{
			RequesterLoginID: student.LoginID,
			RequesterName:    student.Name,
			TimeSlot:         "10:00-12:00",
		}, *sys.Assignment())
	}

	// A second admin working from a stale queue.
	var apiErr errorView
	code = s.call(admin2, http.MethodPost, "/api/requests/"+req.ID+"/allocate", map[string]any{
		"systems":  []int{3},
		"timeSlot": "10:00-12:00",
	}, &apiErr)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", apiErr.Code)

	sys3, err := s.store.GetSystem(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.SystemAvailable, sys3.Status)

	var mine []requestView
	require.Equal(t, http.StatusOK, s.call(student, http.MethodGet, "/api/requests/mine", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, model.RequestApproved, mine[0].Status)

	assert.Eventually(t, func() bool { return s.pushes.Load() >= 1 }, 5*time.Second, 10*time.Millisecond,
		"the student should receive a push for the allocation")

	assert.Eventually(t, func() bool {
		for {
			select {
			case snap := <-s.snapshots:
				if snap.Stats().ByStatus[model.SystemReserved] == 2 {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 10*time.Millisecond, "dashboards should observe the reservation")
}

func TestAllocationWithUnknownSystemIsAtomic(t *testing.T) {
	s := newLabServer(t)
	req := s.submit()

	before, err := s.store.GetSystem(context.Background(), 1)
	require.NoError(t, err)

	var apiErr errorView
	code := s.call(admin, http.MethodPost, "/api/requests/"+req.ID+"/allocate", map[string]any{
		"systems":  []int{1, 999},
		"timeSlot": "10:00-12:00",
	}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_argument", apiErr.Code)
	assert.Equal(t, []int{999}, apiErr.Systems)

	after, err := s.store.GetSystem(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.SystemAvailable, after.Status)
	assert.Equal(t, before.Version, after.Version)
	assert.Nil(t, after.Assignment())

	stored, err := s.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, stored.Status)
	assert.Empty(t, stored.AllocatedSystems)
}
