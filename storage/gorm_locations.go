package storage

import (
	"context"
	"strings"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchLocationsByName returns up to limit locations whose name contains name, case-insensitively.
func (s *GormStore) SearchLocationsByName(ctx context.Context, name string, limit int) ([]models.Location, error) {
	var locs []models.Location
	err := s.DB.WithContext(ctx).
		Where("name ILIKE ?", "%"+likeEscaper.Replace(name)+"%").
		Order("created_at ASC").
		Limit(limit).
		Find(&locs).Error
	if err != nil {
		return nil, translate(err)
	}
	return locs, nil
}

func (s *GormStore) CreateLocation(ctx context.Context, loc *models.Location) error {
	return translate(s.DB.WithContext(ctx).Create(loc).Error)
}

func (s *GormStore) FindQuestByLocation(ctx context.Context, locationID string) (*models.Quest, error) {
	var q models.Quest
	err := s.DB.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("created_at ASC").
		First(&q).Error
	if err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (s *GormStore) FindQuestByImportKey(ctx context.Context, key string) (*models.Quest, error) {
	var q models.Quest
	if err := s.DB.WithContext(ctx).Where("import_key = ?", key).First(&q).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (s *GormStore) CreateQuest(ctx context.Context, q *models.Quest) error {
	return translate(s.DB.WithContext(ctx).Create(q).Error)
}
