package handlers

import (
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLocationRoutes(app *fiber.App, importer *services.StoreImportService, requireAuth fiber.Handler) {
	app.Post("/locations/thrift/import", requireAuth, func(c *fiber.Ctx) error {
		opts := services.DefaultImportOptions()
		opts.DryRun = c.QueryBool("dryRun", false)
		opts.SyncIfStale = c.QueryBool("syncIfStale", true)
		opts.AlsoCreateQuests = c.QueryBool("createQuests", true)
		opts.DefaultRadius = c.QueryFloat("defaultRadius", services.DefaultRadiusMeters)
		opts.Filter = c.Query("name", c.Query("q"))

		res, err := importer.Import(c.UserContext(), opts)
		if err != nil {
			return err
		}

		if res.Skipped != "" {
			return c.JSON(fiber.Map{
				"ok":       true,
				"skipped":  res.Skipped,
				"lastSync": epochMillis(res.LastSync),
			})
		}
		if res.DryRun {
			return c.JSON(fiber.Map{
				"ok":      true,
				"dryRun":  true,
				"count":   res.Count,
				"preview": res.Preview,
			})
		}
		return c.JSON(fiber.Map{
			"ok":               true,
			"storesProcessed":  res.StoresProcessed,
			"createdLocations": res.CreatedLocations,
			"skippedExisting":  res.SkippedExisting,
			"questsCreated":    res.QuestsCreated,
			"lastSync":         epochMillis(res.LastSync),
		})
	})
}

// epochMillis renders a sync time the way clients expect; never synced is 0.
func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
