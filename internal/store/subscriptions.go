package store

import (
	"context"

	"gorm.io/gorm/clause"

	"lab-allocation-backend/internal/model"
)

// UpsertSubscription creates or replaces the subscription for sub.Endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "login_id"}),
	}).Create(sub).Error
	return classify("upsert subscription", err)
}

// GetSubscription loads the subscription registered for endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, classify("get subscription", err)
	}
	return &sub, nil
}

// DeleteSubscription removes the subscription for endpoint. Missing endpoints are not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	return classify("delete subscription", err)
}

// ListSubscriptions returns every subscription owned by loginID.
func (s *gormStore) ListSubscriptions(ctx context.Context, loginID string) ([]model.PushSubscription, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("login_id = ?", loginID).Find(&subs).Error; err != nil {
		return nil, classify("list subscriptions", err)
	}
	return subs, nil
}
