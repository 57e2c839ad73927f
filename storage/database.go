package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres with constraint errors translated to gorm sentinels.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

var postMigrations = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_leaderboard_user_period
		ON leaderboard_entries (user_id, period_type, period_start) NULLS NOT DISTINCT`,
	`CREATE OR REPLACE FUNCTION increment_leaderboard_points(
		p_user_id uuid, p_period_type text, p_period_start timestamptz,
		p_period_end timestamptz, p_delta bigint)
	RETURNS bigint LANGUAGE sql AS $$
		INSERT INTO leaderboard_entries (id, user_id, period_type, period_start, period_end, points, updated_at)
		VALUES (gen_random_uuid(), p_user_id, p_period_type, p_period_start, p_period_end, p_delta, now())
		ON CONFLICT (user_id, period_type, period_start)
		DO UPDATE SET points = leaderboard_entries.points + EXCLUDED.points, updated_at = now()
		RETURNING points;
	$$`,
}

// Migrate creates tables, the leaderboard uniqueness index and the increment function.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Hunt{},
		&models.Location{},
		&models.Quest{},
		&models.UserQuest{},
		&models.UserHunt{},
		&models.LeaderboardEntry{},
		&models.PrivateLeaderboard{},
		&models.PrivateLeaderboardMember{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range postMigrations {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("post-migration failed: %w", err)
		}
	}
	slog.Info("[MIGRATE] schema up to date")
	return nil
}
