package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/middleware"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/gofiber/fiber/v2"
)

type createLeaderboardRequest struct {
	Name        string  `json:"name" form:"name" validate:"required,max=100"`
	Description *string `json:"description" form:"description" validate:"omitempty,max=500"`
	PeriodType  *string `json:"periodType" form:"periodType"`
	PeriodStart *string `json:"periodStart" form:"periodStart"`
	PeriodEnd   *string `json:"periodEnd" form:"periodEnd"`
}

type updateLeaderboardRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive"`
	PeriodType  *string `json:"periodType"`
	PeriodStart *string `json:"periodStart"`
	PeriodEnd   *string `json:"periodEnd"`
}

type joinRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,max=32"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func SetupPrivateLeaderboardRoutes(app *fiber.App, svc *services.MembershipService, requireAuth fiber.Handler) {
	group := app.Group("/private-leaderboards", requireAuth)

	group.Post("/", func(c *fiber.Ctx) error {
		var req createLeaderboardRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		start, err := parseOptionalTime("periodStart", req.PeriodStart)
		if err != nil {
			return err
		}
		end, err := parseOptionalTime("periodEnd", req.PeriodEnd)
		if err != nil {
			return err
		}

		cover, err := coverFile(c)
		if err != nil {
			return err
		}

		lb, err := svc.Create(c.UserContext(), middleware.Access(c), services.CreateLeaderboardInput{
			Name:        req.Name,
			Description: req.Description,
			PeriodType:  req.PeriodType,
			PeriodStart: start,
			PeriodEnd:   end,
		}, cover)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(lb)
	})

	group.Get("/", func(c *fiber.Ctx) error {
		lbs, err := svc.ListMine(c.UserContext(), middleware.Access(c))
		if err != nil {
			return err
		}
		return c.JSON(lbs)
	})

	group.Post("/join", func(c *fiber.Ctx) error {
		var req joinRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		member, err := svc.JoinByInviteCode(c.UserContext(), middleware.Access(c), req.InviteCode)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"ok": true, "member": member})
	})

	group.Get("/:id", func(c *fiber.Ctx) error {
		lb, err := svc.Get(c.UserContext(), middleware.Access(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(lb)
	})

	group.Patch("/:id", func(c *fiber.Ctx) error {
		var req updateLeaderboardRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		start, err := parseOptionalTime("periodStart", req.PeriodStart)
		if err != nil {
			return err
		}
		end, err := parseOptionalTime("periodEnd", req.PeriodEnd)
		if err != nil {
			return err
		}
		lb, err := svc.Update(c.UserContext(), middleware.Access(c), c.Params("id"), services.UpdateLeaderboardInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
			PeriodType:  req.PeriodType,
			PeriodStart: start,
			PeriodEnd:   end,
		})
		if err != nil {
			return err
		}
		return c.JSON(lb)
	})

	group.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), middleware.Access(c), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	group.Post("/:id/invite-code", func(c *fiber.Ctx) error {
		lb, err := svc.RegenerateInviteCode(c.UserContext(), middleware.Access(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"inviteCode": lb.InviteCode})
	})

	group.Get("/:id/members", func(c *fiber.Ctx) error {
		members, err := svc.ListMembers(c.UserContext(), middleware.Access(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(members)
	})

	group.Post("/:id/members", func(c *fiber.Ctx) error {
		var req addMemberRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		member, err := svc.InviteMember(c.UserContext(), middleware.Access(c), c.Params("id"), req.UserID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	})

	group.Delete("/:id/members/:userId", func(c *fiber.Ctx) error {
		userID := c.Params("userId")
		if userID == "me" {
			userID = middleware.UserID(c)
		}
		if err := svc.RemoveMember(c.UserContext(), middleware.Access(c), c.Params("id"), userID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	group.Get("/:id/standings", func(c *fiber.Ctx) error {
		standings, err := svc.Standings(c.UserContext(), middleware.Access(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(standings)
	})
}

// coverFile returns the optional "coverImage" upload of a multipart request.
func coverFile(c *fiber.Ctx) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, services.InvalidInput("invalid multipart body")
	}
	files := form.File["coverImage"]
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}
