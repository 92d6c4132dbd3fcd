package handlers

import (
	"errors"

	"penpal-exchange-system/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps the service error taxonomy onto HTTP statuses with the
// explanatory reason in the body.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidState):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvariant):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
