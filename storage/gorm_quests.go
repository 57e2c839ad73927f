package storage

import (
	"context"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *GormStore) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	var q models.Quest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (s *GormStore) GetHunt(ctx context.Context, id string) (*models.Hunt, error) {
	var h models.Hunt
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func (s *GormStore) CreateUserQuest(ctx context.Context, access Access, uq *models.UserQuest) error {
	if !access.Permits(uq.UserID) {
		return ErrPermissionDenied
	}
	return s.withAccess(ctx, access, func(tx *gorm.DB) error {
		return translate(tx.Create(uq).Error)
	})
}

func (s *GormStore) GetUserQuest(ctx context.Context, access Access, id string) (*models.UserQuest, error) {
	var uq models.UserQuest
	err := s.withAccess(ctx, access, func(tx *gorm.DB) error {
		return ownedBy(tx, access).Where("id = ?", id).First(&uq).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &uq, nil
}

func (s *GormStore) ListUserQuests(ctx context.Context, access Access, userID string) ([]models.UserQuest, error) {
	var rows []models.UserQuest
	err := s.withAccess(ctx, access, func(tx *gorm.DB) error {
		return ownedBy(tx, access).
			Where("user_id = ?", userID).
			Preload("Quest").
			Preload("Quest.Location").
			Order("created_at DESC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// CompleteUserQuest flips is_complete in a single conditional UPDATE.
// ErrNoRowsAffected means another writer completed it first.
func (s *GormStore) CompleteUserQuest(ctx context.Context, access Access, id string, at time.Time) (*models.UserQuest, error) {
	var uq models.UserQuest
	err := s.withAccess(ctx, access, func(tx *gorm.DB) error {
		res := ownedBy(tx.Model(&uq), access).
			Clauses(clause.Returning{}).
			Where("id = ? AND is_complete = ?", id, false).
			Updates(map[string]interface{}{
				"is_complete":  true,
				"completed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoRowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &uq, nil
}

// UpsertUserHunt inserts hunt progress, leaving an existing row untouched.
func (s *GormStore) UpsertUserHunt(ctx context.Context, access Access, uh *models.UserHunt) error {
	if !access.Permits(uh.UserID) {
		return ErrPermissionDenied
	}
	return s.withAccess(ctx, access, func(tx *gorm.DB) error {
		return translate(tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "hunt_id"}},
			DoNothing: true,
		}).Create(uh).Error)
	})
}
