package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lab-allocation-backend/internal/model"
)

// CommitAllocation implements Store.
func (s *gormStore) CommitAllocation(ctx context.Context, c AllocationCommit) (*model.Request, []model.System, error) {
	if len(c.Systems) == 0 {
		return nil, nil, model.InvalidArgumentf("allocation needs at least one system")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := s.now()
	ids := c.SystemIDs()
	assignment := c.Assignment

	var (
		req     model.Request
		systems []model.System
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Each system must still be exactly as the pre-flight check saw it.
		for _, claim := range c.lockOrder() {
			res := tx.Model(&model.System{}).
				Where("id = ? AND version = ? AND status = ?", claim.ID, claim.Version, model.SystemAvailable).
				Updates(systemColumns(model.SystemReserved, &assignment, now))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("system %d changed since it was checked: %w", claim.ID, model.ErrConflict)
			}
		}

		reviewedAt := c.ReviewedAt
		cols := requestColumns(model.RequestApproved, RequestPatch{
			ReviewedAt:       &reviewedAt,
			ReviewerLoginID:  c.ReviewerLoginID,
			AllocatedSystems: ids,
			AllocatedSlot:    assignment.TimeSlot,
		})
		cols["updated_at"] = now

		res := tx.Model(&model.Request{}).
			Where("id = ? AND status = ? AND version = ?", c.RequestID, model.RequestPending, c.RequestVersion).
			Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("request %s changed since it was loaded: %w", c.RequestID, model.ErrConflict)
		}

		if err := tx.First(&req, "id = ?", c.RequestID).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", []int(ids)).Order("id").Find(&systems).Error
	})
	if err != nil {
		return nil, nil, classify(fmt.Sprintf("commit allocation for request %s", c.RequestID), err)
	}
	return &req, systems, nil
}
