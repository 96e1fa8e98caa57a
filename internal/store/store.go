package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"lab-allocation-backend/internal/model"
)

// InventoryStore holds the workstation records.
type InventoryStore interface {
	GetSystem(ctx context.Context, id int) (*model.System, error)
	ListSystems(ctx context.Context) ([]model.System, error)
	SetSystemStatus(ctx context.Context, id int, pre Precondition, status model.SystemStatus, assignment *model.Assignment) (*model.System, error)
	SeedSystems(ctx context.Context, total, highTier int) (int, error)
}

// RequestStore holds the Request records.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *model.Request) error
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequestsByRequester(ctx context.Context, uid string) ([]model.Request, error)
	ListRequestsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	TransitionRequest(ctx context.Context, id string, expected, next model.RequestStatus, patch RequestPatch) (*model.Request, error)
}

// SubscriptionStore holds browser push subscriptions.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context, loginID string) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	InventoryStore
	RequestStore
	SubscriptionStore

	// CommitAllocation reserves every claimed system and approves the request in one
	// transaction. Any claim whose precondition no longer holds aborts the whole commit
	// with model.ErrConflict.
	CommitAllocation(ctx context.Context, commit AllocationCommit) (*model.Request, []model.System, error)

	// Revision returns a number that grows with every write to systems or requests.
	Revision(ctx context.Context) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db        *gorm.DB
	opTimeout time.Duration
	now       func() time.Time
}

// NewGormStore creates a new GORM-backed store. Every operation is bounded by opTimeout
// when it is positive.
func NewGormStore(db *gorm.DB, opTimeout time.Duration) Store {
	return &gormStore{
		db:        db,
		opTimeout: opTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *gormStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Revision sums the row versions of both tables. Rows are never deleted and every
// write bumps a version, so the sum only increases.
func (s *gormStore) Revision(ctx context.Context) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var systems, requests int64
	if err := s.db.WithContext(ctx).Model(&model.System{}).
		Select("CAST(COALESCE(SUM(version), 0) AS BIGINT)").Row().Scan(&systems); err != nil {
		return 0, classify("revision", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Request{}).
		Select("CAST(COALESCE(SUM(version), 0) AS BIGINT)").Row().Scan(&requests); err != nil {
		return 0, classify("revision", err)
	}
	return systems + requests, nil
}

var domainErrors = []error{
	model.ErrInvalidArgument,
	model.ErrNotFound,
	model.ErrInvalidTransition,
	model.ErrConflict,
	model.ErrUnavailable,
}

// Postgres aborts one side of a lock cycle or a serialization failure; the caller lost
// a race, same as a failed version check.
var conflictStates = map[string]bool{
	"40P01": true, // deadlock_detected
	"40001": true, // serialization_failure
}

// classify maps driver and gorm errors onto the error taxonomy. Domain errors pass
// through untouched; lost races become Conflict; anything else the database reports is
// treated as transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && conflictStates[pgErr.Code] {
		return fmt.Errorf("%s: %w: %w", op, model.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrUnavailable, err)
}

// missingOrConflict explains why a conditional update touched no rows.
func missingOrConflict(tx *gorm.DB, m any, id any, what string) error {
	var count int64
	if err := tx.Model(m).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s %v: %w", what, id, model.ErrNotFound)
	}
	return fmt.Errorf("%s %v changed concurrently: %w", what, id, model.ErrConflict)
}
