package models

import "time"

type PeriodType string

const (
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodOverall PeriodType = "overall"
)

// Period is an aggregation window. Overall has nil bounds.
type Period struct {
	Type  PeriodType `json:"periodType"`
	Start *time.Time `json:"periodStart"`
	End   *time.Time `json:"periodEnd"`
}

// LeaderboardEntry holds one user's points for one period.
// Uniqueness on (user_id, period_type, period_start) is created by storage.Migrate.
type LeaderboardEntry struct {
	ID          string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"userId"`
	PeriodType  string     `gorm:"not null;index" json:"periodType"`
	PeriodStart *time.Time `json:"periodStart"`
	PeriodEnd   *time.Time `json:"periodEnd"`
	Points      int64      `gorm:"not null;default:0" json:"points"`
	Rank        *int       `gorm:"index" json:"rank"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
