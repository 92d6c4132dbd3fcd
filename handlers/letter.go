package handlers

import (
	"fmt"

	"penpal-exchange-system/middleware"
	"penpal-exchange-system/services"
	"penpal-exchange-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupLetterRoutes wires letter sending, receipt verification and
// disputes. Letter photos go to R2 first; the proof only ever stores the
// resulting URL.
func SetupLetterRoutes(app *fiber.App, letterService *services.LetterService, notifier *services.NotificationService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/matches/:id/letters", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		matchID := c.Params("id")

		file, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "letter photo is required", "cause": err.Error()})
		}

		imageURL, err := utils.UploadLetterPhoto(c.Context(), file, fmt.Sprintf("letters/%s/%s", matchID, uuid.NewString()))
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "photo upload failed", "cause": err.Error()})
		}

		proof, notes, err := letterService.Send(matchID, userID, imageURL)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.Status(fiber.StatusCreated).JSON(proof)
	})

	secured.Get("/matches/:id/mission", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		mission, err := letterService.Mission(c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"mission": mission,
			"steps":   mission.Steps(),
		})
	})

	secured.Post("/letters/:id/receive", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		proofID := c.Params("id")

		file, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a photo of the received letter is required", "cause": err.Error()})
		}

		imageURL, err := utils.UploadLetterPhoto(c.Context(), file, fmt.Sprintf("letters/received/%s/%s", proofID, uuid.NewString()))
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "photo upload failed", "cause": err.Error()})
		}

		proof, notes, err := letterService.Receive(proofID, userID, imageURL)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(proof)
	})

	secured.Post("/letters/:id/dispute", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		proof, notes, err := letterService.Dispute(c.Params("id"), userID, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(proof)
	})
}
