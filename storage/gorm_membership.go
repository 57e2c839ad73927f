package storage

import (
	"context"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"

	"gorm.io/gorm"
)

// CreateLeaderboardWithOwner inserts the leaderboard and its owner membership together.
func (s *GormStore) CreateLeaderboardWithOwner(ctx context.Context, lb *models.PrivateLeaderboard, owner *models.PrivateLeaderboardMember) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lb).Error; err != nil {
			return err
		}
		owner.LeaderboardID = lb.ID
		return tx.Create(owner).Error
	})
	return translate(err)
}

func (s *GormStore) GetPrivateLeaderboard(ctx context.Context, id string) (*models.PrivateLeaderboard, error) {
	var lb models.PrivateLeaderboard
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&lb).Error; err != nil {
		return nil, translate(err)
	}
	return &lb, nil
}

func (s *GormStore) GetPrivateLeaderboardByInviteCode(ctx context.Context, code string) (*models.PrivateLeaderboard, error) {
	var lb models.PrivateLeaderboard
	if err := s.DB.WithContext(ctx).Where("invite_code = ?", code).First(&lb).Error; err != nil {
		return nil, translate(err)
	}
	return &lb, nil
}

func (s *GormStore) ListPrivateLeaderboardsForUser(ctx context.Context, userID string) ([]models.PrivateLeaderboard, error) {
	lbs := []models.PrivateLeaderboard{}
	err := s.DB.WithContext(ctx).
		Joins("JOIN private_leaderboard_members m ON m.leaderboard_id = private_leaderboards.id").
		Where("m.user_id = ?", userID).
		Order("private_leaderboards.created_at DESC").
		Find(&lbs).Error
	if err != nil {
		return nil, translate(err)
	}
	return lbs, nil
}

func (s *GormStore) UpdatePrivateLeaderboard(ctx context.Context, id string, updates map[string]interface{}) (*models.PrivateLeaderboard, error) {
	var lb models.PrivateLeaderboard
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PrivateLeaderboard{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&lb).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &lb, nil
}

func (s *GormStore) DeletePrivateLeaderboard(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.PrivateLeaderboard{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) InsertMember(ctx context.Context, m *models.PrivateLeaderboardMember) error {
	return translate(s.DB.WithContext(ctx).Create(m).Error)
}

func (s *GormStore) GetMember(ctx context.Context, leaderboardID, userID string) (*models.PrivateLeaderboardMember, error) {
	var m models.PrivateLeaderboardMember
	err := s.DB.WithContext(ctx).
		Where("leaderboard_id = ? AND user_id = ?", leaderboardID, userID).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) ListMembers(ctx context.Context, leaderboardID string) ([]models.PrivateLeaderboardMember, error) {
	members := []models.PrivateLeaderboardMember{}
	err := s.DB.WithContext(ctx).
		Where("leaderboard_id = ?", leaderboardID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (s *GormStore) DeleteMember(ctx context.Context, leaderboardID, userID string) error {
	res := s.DB.WithContext(ctx).
		Where("leaderboard_id = ? AND user_id = ?", leaderboardID, userID).
		Delete(&models.PrivateLeaderboardMember{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
