package handlers

import (
	"penpal-exchange-system/middleware"
	"penpal-exchange-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupMatchRoutes wires the participant-facing match lifecycle: address
// submission, gated match views and cancellation requests.
func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService, cancellationService *services.CancellationService, notifier *services.NotificationService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/matches/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		matches, err := matchService.ListForUser(userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(matches)
	})

	secured.Get("/matches/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		detail, err := matchService.GetMatch(c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(detail)
	})

	secured.Get("/matches/:id/address", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		addr, err := matchService.PartnerAddress(c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(addr)
	})

	secured.Post("/matches/:id/address", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var in services.AddressInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		match, notes, err := matchService.SubmitAddress(c.Params("id"), userID, in)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(match)
	})

	secured.Post("/matches/:id/cancel-request", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		request, notes, err := cancellationService.Request(c.Params("id"), userID, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.Status(fiber.StatusCreated).JSON(request)
	})
}
