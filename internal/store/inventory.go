package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lab-allocation-backend/internal/model"
)

// GetSystem loads one workstation.
func (s *gormStore) GetSystem(ctx context.Context, id int) (*model.System, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var sys model.System
	if err := s.db.WithContext(ctx).First(&sys, id).Error; err != nil {
		return nil, classify(fmt.Sprintf("get system %d", id), err)
	}
	return &sys, nil
}

// ListSystems returns every workstation ordered by id.
func (s *gormStore) ListSystems(ctx context.Context) ([]model.System, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var systems []model.System
	if err := s.db.WithContext(ctx).Order("id").Find(&systems).Error; err != nil {
		return nil, classify("list systems", err)
	}
	return systems, nil
}

// SetSystemStatus changes one system's status under an optional precondition.
// Statuses without an assignment clear it unconditionally.
func (s *gormStore) SetSystemStatus(ctx context.Context, id int, pre Precondition, status model.SystemStatus, assignment *model.Assignment) (*model.System, error) {
	if !status.Valid() {
		return nil, model.InvalidArgumentf("unknown system status %q", status)
	}
	if status.Assigned() && assignment == nil {
		return nil, model.InvalidArgumentf("status %s requires an assignment", status)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var updated model.System
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.System{}).Where("id = ?", id)
		if pre.Status != "" {
			q = q.Where("status = ?", pre.Status)
		}
		if pre.Version > 0 {
			q = q.Where("version = ?", pre.Version)
		}
		res := q.Updates(systemColumns(status, assignment, s.now()))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, &model.System{}, id, "system")
		}
		return tx.First(&updated, id).Error
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("set system %d status", id), err)
	}
	return &updated, nil
}

// SeedSystems creates systems 1..total when the inventory is empty. Systems
// 1..highTier are high tier. It returns how many systems were created.
func (s *gormStore) SeedSystems(ctx context.Context, total, highTier int) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.System{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := s.now()
		systems := make([]model.System, 0, total)
		for i := 1; i <= total; i++ {
			systems = append(systems, model.System{
				ID:        i,
				Category:  model.CategoryFor(i, highTier),
				Status:    model.SystemAvailable,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err := tx.Create(&systems).Error; err != nil {
			return err
		}
		created = len(systems)
		return nil
	})
	if err != nil {
		return 0, classify("seed systems", err)
	}
	return created, nil
}

func systemColumns(status model.SystemStatus, assignment *model.Assignment, now time.Time) map[string]any {
	cols := map[string]any{
		"status":             status,
		"assigned_login_id":  nil,
		"assigned_name":      nil,
		"assigned_time_slot": nil,
		"version":            gorm.Expr("version + 1"),
		"updated_at":         now,
	}
	if status.Assigned() && assignment != nil {
		cols["assigned_login_id"] = assignment.RequesterLoginID
		cols["assigned_name"] = assignment.RequesterName
		cols["assigned_time_slot"] = assignment.TimeSlot
	}
	return cols
}
