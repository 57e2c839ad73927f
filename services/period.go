package services

import (
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
)

// ParsePeriodType accepts weekly, monthly or overall in any case.
func ParsePeriodType(s string) (models.PeriodType, error) {
	switch pt := models.PeriodType(strings.ToLower(strings.TrimSpace(s))); pt {
	case models.PeriodWeekly, models.PeriodMonthly, models.PeriodOverall:
		return pt, nil
	}
	return "", InvalidInput("periodType must be weekly, monthly or overall")
}

// CurrentPeriod returns the aggregation window containing now. Weeks start on
// Monday 00:00:00.000 UTC and end Sunday 23:59:59.999 UTC.
func CurrentPeriod(pt models.PeriodType, now time.Time) (models.Period, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch pt {
	case models.PeriodWeekly:
		sinceMonday := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -sinceMonday)
		end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
		return models.Period{Type: pt, Start: &start, End: &end}, nil
	case models.PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		// Day 0 of next month normalises to the last day of this one.
		end := time.Date(now.Year(), now.Month()+1, 0, 23, 59, 59, int(999*time.Millisecond), time.UTC)
		return models.Period{Type: pt, Start: &start, End: &end}, nil
	case models.PeriodOverall:
		return models.Period{Type: pt}, nil
	}
	return models.Period{}, InvalidInput("unknown period type " + string(pt))
}
