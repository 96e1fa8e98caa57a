package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lab-allocation-backend/internal/model"
)

// CreateRequest assigns an id, the pending status and the submission time, then persists req.
func (s *gormStore) CreateRequest(ctx context.Context, req *model.Request) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := s.now()
	req.ID = uuid.NewString()
	req.Status = model.RequestPending
	req.AllocatedSystems = nil
	req.AllocatedSlot = ""
	req.ReviewedAt = nil
	req.ReviewerLoginID = ""
	req.SubmittedAt = now
	req.UpdatedAt = now
	req.Version = 1

	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return classify("create request", err)
	}
	return nil
}

// GetRequest loads one request.
func (s *gormStore) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var req model.Request
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, classify(fmt.Sprintf("get request %s", id), err)
	}
	return &req, nil
}

// ListRequestsByRequester returns a requester's requests, newest first.
func (s *gormStore) ListRequestsByRequester(ctx context.Context, uid string) ([]model.Request, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var reqs []model.Request
	if err := s.db.WithContext(ctx).
		Where("requester_uid = ?", uid).
		Order("submitted_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, classify("list requests by requester", err)
	}
	return reqs, nil
}

// ListRequestsByStatus returns every request in status, in no particular order.
func (s *gormStore) ListRequestsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Request, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var reqs []model.Request
	if err := s.db.WithContext(ctx).Where("status = ?", status).Find(&reqs).Error; err != nil {
		return nil, classify("list requests by status", err)
	}
	return reqs, nil
}

// ListRequests returns every request, in no particular order.
func (s *gormStore) ListRequests(ctx context.Context) ([]model.Request, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var reqs []model.Request
	if err := s.db.WithContext(ctx).Find(&reqs).Error; err != nil {
		return nil, classify("list requests", err)
	}
	return reqs, nil
}

// TransitionRequest moves a request from expected to next with a compare-and-set on the
// stored status (and version, when the patch names one).
func (s *gormStore) TransitionRequest(ctx context.Context, id string, expected, next model.RequestStatus, patch RequestPatch) (*model.Request, error) {
	if !model.CanTransition(expected, next) {
		return nil, fmt.Errorf("request %s: %s -> %s: %w", id, expected, next, model.ErrInvalidTransition)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cols := requestColumns(next, patch)
	cols["updated_at"] = s.now()

	var updated model.Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.Request{}).Where("id = ? AND status = ?", id, expected)
		if patch.ExpectedVersion > 0 {
			q = q.Where("version = ?", patch.ExpectedVersion)
		}
		res := q.Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, &model.Request{}, id, "request")
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("transition request %s", id), err)
	}
	return &updated, nil
}

func requestColumns(next model.RequestStatus, patch RequestPatch) map[string]any {
	cols := map[string]any{
		"status":  next,
		"version": gorm.Expr("version + 1"),
	}
	if patch.ReviewedAt != nil {
		cols["reviewed_at"] = *patch.ReviewedAt
	}
	if patch.ReviewerLoginID != "" {
		cols["reviewer_login_id"] = patch.ReviewerLoginID
	}
	if patch.AllocatedSystems != nil {
		cols["allocated_systems"] = patch.AllocatedSystems
		cols["allocated_slot"] = patch.AllocatedSlot
	}
	return cols
}
