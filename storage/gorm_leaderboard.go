package storage

import (
	"context"
	"strings"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"

	"gorm.io/gorm"
)

// IncrementPoints calls increment_leaderboard_points for each period inside one
// transaction, so either every period row gains delta or none does.
func (s *GormStore) IncrementPoints(ctx context.Context, userID string, periods []models.Period, delta int64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, period := range periods {
			var total int64
			err := tx.Raw("SELECT increment_leaderboard_points(?, ?, ?, ?, ?)",
				userID, string(period.Type), period.Start, period.End, delta).
				Scan(&total).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func periodScope(tx *gorm.DB, period models.Period) *gorm.DB {
	tx = tx.Where("period_type = ?", string(period.Type))
	if period.Start == nil {
		return tx.Where("period_start IS NULL")
	}
	return tx.Where("period_start = ?", *period.Start)
}

func (s *GormStore) FindEntry(ctx context.Context, userID string, period models.Period) (*models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	err := periodScope(s.DB.WithContext(ctx), period).
		Where("user_id = ?", userID).
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (s *GormStore) CreateEntry(ctx context.Context, e *models.LeaderboardEntry) error {
	return translate(s.DB.WithContext(ctx).Create(e).Error)
}

// UpdateEntryPoints sets points only if the row still holds expected.
func (s *GormStore) UpdateEntryPoints(ctx context.Context, id string, expected, next int64) error {
	res := s.DB.WithContext(ctx).
		Model(&models.LeaderboardEntry{}).
		Where("id = ? AND points = ?", id, expected).
		Update("points", next)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (s *GormStore) ListEntries(ctx context.Context, f LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	q := s.DB.WithContext(ctx).Model(&models.LeaderboardEntry{})
	if f.PeriodType != "" {
		q = q.Where("LOWER(period_type) = ?", strings.ToLower(f.PeriodType))
	}
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Start != nil {
		q = q.Where("period_start >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("period_end <= ?", *f.End)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	entries := []models.LeaderboardEntry{}
	if err := q.Order("rank ASC NULLS LAST").Order("points DESC").Find(&entries).Error; err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

// PointsFor returns points in the given period keyed by user id. Users without a row are absent.
func (s *GormStore) PointsFor(ctx context.Context, userIDs []string, period models.Period) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []models.LeaderboardEntry
	err := periodScope(s.DB.WithContext(ctx), period).
		Where("user_id IN ?", userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, r := range rows {
		out[r.UserID] = r.Points
	}
	return out, nil
}

// RecomputeRanks assigns competition ranks by points within each period window.
func (s *GormStore) RecomputeRanks(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Exec(`
		UPDATE leaderboard_entries le
		SET rank = r.rnk
		FROM (
			SELECT id, RANK() OVER (PARTITION BY period_type, period_start ORDER BY points DESC) AS rnk
			FROM leaderboard_entries
		) r
		WHERE le.id = r.id AND le.rank IS DISTINCT FROM r.rnk`)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}
