package handlers

import (
	"github.com/Girls-Girls-Inc/wits-quest-sub001/middleware"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/gofiber/fiber/v2"
)

type enrollRequest struct {
	QuestID string `json:"questId" validate:"required"`
}

func SetupUserQuestRoutes(app *fiber.App, svc *services.QuestProgressService, requireAuth fiber.Handler) {
	secured := app.Group("/user-quests", requireAuth)

	secured.Post("/", func(c *fiber.Ctx) error {
		var req enrollRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		uq, err := svc.Enroll(c.UserContext(), middleware.Access(c), req.QuestID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(uq)
	})

	secured.Get("/", func(c *fiber.Ctx) error {
		rows, err := svc.ListEnrollments(c.UserContext(), middleware.Access(c))
		if err != nil {
			return err
		}
		return c.JSON(rows)
	})

	secured.Post("/:id/complete", func(c *fiber.Ctx) error {
		res, err := svc.Complete(c.UserContext(), middleware.Access(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
}
