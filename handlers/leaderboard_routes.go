package handlers

import (
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/gofiber/fiber/v2"
)

const maxLeaderboardLimit = 500

func SetupLeaderboardRoutes(app *fiber.App, ledger *services.PointsLedger) {
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 0)
		if limit < 0 || limit > maxLeaderboardLimit {
			limit = maxLeaderboardLimit
		}
		entries, err := ledger.GetLeaderboard(c.UserContext(), services.LeaderboardQuery{
			PeriodType: c.Query("periodType"),
			Start:      c.Query("start"),
			End:        c.Query("end"),
			UserID:     c.Query("userId"),
			ID:         c.Query("id"),
			Limit:      limit,
		})
		if err != nil {
			return err
		}
		return c.JSON(entries)
	})
}
