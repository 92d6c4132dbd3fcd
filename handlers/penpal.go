package handlers

import (
	"strconv"

	"penpal-exchange-system/middleware"
	"penpal-exchange-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupPenpalRoutes wires profile recruitment, the application flow and
// reputation lookups.
func SetupPenpalRoutes(app *fiber.App, profileService *services.ProfileService, reputationService *services.ReputationService, notifier *services.NotificationService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/profiles", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var in services.RegisterProfileInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		profile, err := profileService.RegisterProfile(userID, in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(profile)
	})

	secured.Get("/profiles", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		profiles, err := profileService.ListRecruiting(userID, page, size)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(profiles)
	})

	secured.Get("/profiles/:id", func(c *fiber.Ctx) error {
		profile, pending, err := profileService.GetProfile(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"profile":              profile,
			"pending_applications": pending,
		})
	})

	secured.Get("/profiles/:id/applications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		apps, err := profileService.ListApplications(c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(apps)
	})

	secured.Post("/profiles/:id/apply", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ApplicantName string `json:"applicant_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		application, notes, err := profileService.Apply(c.Params("id"), userID, req.ApplicantName)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.Status(fiber.StatusCreated).JSON(application)
	})

	secured.Post("/applications/:id/accept", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		match, notes, err := profileService.Accept(c.Params("id"), userID, reputationService)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(match)
	})

	secured.Post("/applications/:id/reject", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		application, notes, err := profileService.Reject(c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(application)
	})

	secured.Get("/users/me/reputation", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		rep, err := reputationService.Get(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rep)
	})
}
