package storage

import "time"

// LeaderboardFilter narrows a leaderboard read. Zero values mean "no filter".
type LeaderboardFilter struct {
	PeriodType string
	ID         string
	UserID     string
	Start      *time.Time
	End        *time.Time
	Limit      int
}
