package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/google/uuid"
)

const (
	MethodRPC      = "rpc"
	MethodFallback = "fallback"

	fallbackAttempts = 3
)

// LedgerStore is the leaderboard slice of the data store gateway.
type LedgerStore interface {
	// IncrementPoints adds delta to every period row in one atomic step.
	IncrementPoints(ctx context.Context, userID string, periods []models.Period, delta int64) error
	FindEntry(ctx context.Context, userID string, period models.Period) (*models.LeaderboardEntry, error)
	CreateEntry(ctx context.Context, e *models.LeaderboardEntry) error
	UpdateEntryPoints(ctx context.Context, id string, expected, next int64) error
	ListEntries(ctx context.Context, f storage.LeaderboardFilter) ([]models.LeaderboardEntry, error)
	PointsFor(ctx context.Context, userIDs []string, period models.Period) (map[string]int64, error)
	RecomputeRanks(ctx context.Context) (int64, error)
}

type AwardResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method"`
	// Periods lists the period rows that hold the points.
	Periods []models.PeriodType `json:"periods,omitempty"`
}

// PointsLedger adds points to every tracked period row for a user.
type PointsLedger struct {
	store   LedgerStore
	periods []models.PeriodType
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPointsLedger(store LedgerStore, m *metrics.Metrics) *PointsLedger {
	return &PointsLedger{
		store:   store,
		periods: []models.PeriodType{models.PeriodWeekly, models.PeriodMonthly, models.PeriodOverall},
		metrics: m,
		now:     time.Now,
	}
}

// AddPoints credits all tracked periods or none. The atomic increment covers
// every period at once; the read-then-write fallback is used only when that
// primitive is unavailable and reverts the periods it already credited when a
// later one fails. On error the returned result, if any, names the periods
// that still hold the points.
func (l *PointsLedger) AddPoints(ctx context.Context, userID string, points int64) (*AwardResult, error) {
	if points < 0 {
		return nil, InvalidInput("points must not be negative")
	}
	if points == 0 {
		return &AwardResult{OK: true, Method: MethodRPC}, nil
	}

	now := l.now()
	periods := make([]models.Period, 0, len(l.periods))
	for _, pt := range l.periods {
		period, err := CurrentPeriod(pt, now)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}

	err := l.store.IncrementPoints(ctx, userID, periods, points)
	if err == nil {
		return l.awarded(userID, points, MethodRPC), nil
	}
	if !errors.Is(err, storage.ErrRPCUnavailable) {
		return nil, fmt.Errorf("add %d points for %s: %w", points, userID, err)
	}

	slog.Warn("[LEDGER] atomic increment unavailable, using fallback", "user_id", userID, "error", err)
	credited := make([]models.Period, 0, len(periods))
	for _, period := range periods {
		if err := l.addFallback(ctx, userID, period, points); err != nil {
			err = fmt.Errorf("add %d %s points for %s: %w", points, period.Type, userID, err)
			return l.revert(ctx, userID, credited, points), err
		}
		credited = append(credited, period)
	}
	return l.awarded(userID, points, MethodFallback), nil
}

func (l *PointsLedger) awarded(userID string, points int64, method string) *AwardResult {
	l.metrics.PointsAwarded(method, points)
	slog.Info("[LEDGER] points added", "user_id", userID, "points", points, "method", method)
	return &AwardResult{OK: true, Method: method, Periods: append([]models.PeriodType(nil), l.periods...)}
}

// revert takes points back out of credited periods. Periods that could not be
// reverted are reported in the result.
func (l *PointsLedger) revert(ctx context.Context, userID string, credited []models.Period, points int64) *AwardResult {
	res := &AwardResult{Method: MethodFallback}
	ctx = context.WithoutCancel(ctx)
	for _, period := range credited {
		if err := l.addFallback(ctx, userID, period, -points); err != nil {
			slog.Error("[LEDGER] could not revert partial award",
				"user_id", userID, "period", period.Type, "points", points, "error", err)
			res.Periods = append(res.Periods, period.Type)
		}
	}
	return res
}

func (l *PointsLedger) addFallback(ctx context.Context, userID string, period models.Period, delta int64) error {
	for attempt := 0; attempt < fallbackAttempts; attempt++ {
		entry, err := l.store.FindEntry(ctx, userID, period)
		if errors.Is(err, storage.ErrNotFound) {
			err = l.store.CreateEntry(ctx, &models.LeaderboardEntry{
				ID:          uuid.NewString(),
				UserID:      userID,
				PeriodType:  string(period.Type),
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
				Points:      delta,
			})
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return err
		}
		if err != nil {
			return err
		}

		err = l.store.UpdateEntryPoints(ctx, entry.ID, entry.Points, entry.Points+delta)
		if errors.Is(err, storage.ErrNoRowsAffected) {
			continue
		}
		return err
	}
	return fmt.Errorf("leaderboard row for %s changed during %d attempts", userID, fallbackAttempts)
}

// LeaderboardQuery mirrors the GET /leaderboard query string.
type LeaderboardQuery struct {
	PeriodType string
	Start      string
	End        string
	UserID     string
	ID         string
	Limit      int
}

// GetLeaderboard returns matching rows ordered by rank with unranked rows last. Never nil.
func (l *PointsLedger) GetLeaderboard(ctx context.Context, q LeaderboardQuery) ([]models.LeaderboardEntry, error) {
	f := storage.LeaderboardFilter{
		PeriodType: strings.TrimSpace(q.PeriodType),
		ID:         strings.TrimSpace(q.ID),
		UserID:     strings.TrimSpace(q.UserID),
		Limit:      q.Limit,
	}
	if f.PeriodType != "" {
		pt, err := ParsePeriodType(f.PeriodType)
		if err != nil {
			return nil, err
		}
		f.PeriodType = string(pt)
	}

	var err error
	if f.Start, err = parseBound(q.Start, false); err != nil {
		return nil, err
	}
	if f.End, err = parseBound(q.End, true); err != nil {
		return nil, err
	}

	entries, err := l.store.ListEntries(ctx, f)
	if err != nil {
		return nil, storeError(err, "leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

// parseBound accepts RFC 3339 timestamps or YYYY-MM-DD dates. A date-only end
// bound covers the whole day.
func parseBound(s string, isEnd bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, InvalidInput(fmt.Sprintf("invalid date %q, expected ISO-8601", s))
	}
	if isEnd {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return &t, nil
}

// RecomputeRanks refreshes rank on every leaderboard row.
func (l *PointsLedger) RecomputeRanks(ctx context.Context) (int64, error) {
	return l.store.RecomputeRanks(ctx)
}
