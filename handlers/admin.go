package handlers

import (
	"time"

	"penpal-exchange-system/middleware"
	"penpal-exchange-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes wires the review queues and arbitration verdicts. All
// routes require the admin role from the gateway context.
func SetupAdminRoutes(app *fiber.App, matchService *services.MatchService, letterService *services.LetterService,
	cancellationService *services.CancellationService, escalationService *services.EscalationService,
	reputationService *services.ReputationService, notifier *services.NotificationService) {

	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.AdminOnly())

	admin.Get("/matches/review", func(c *fiber.Ctx) error {
		matches, err := matchService.ReviewQueue()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(matches)
	})

	admin.Post("/matches/:id/approve", func(c *fiber.Ctx) error {
		match, mission, notes, err := matchService.AdminApprove(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(fiber.Map{"match": match, "mission": mission})
	})

	admin.Post("/matches/:id/reject", func(c *fiber.Ctx) error {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		match, notes, err := matchService.AdminReject(c.Params("id"), req.Reason)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(match)
	})

	admin.Get("/letters/disputed", func(c *fiber.Ctx) error {
		proofs, err := letterService.DisputedQueue()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(proofs)
	})

	admin.Post("/letters/:id/resolve", func(c *fiber.Ctx) error {
		var req struct {
			Approve bool `json:"approve"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		proof, notes, err := letterService.ResolveDispute(c.Params("id"), req.Approve)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(proof)
	})

	admin.Get("/cancel-requests", func(c *fiber.Ctx) error {
		reqs, err := cancellationService.PendingQueue(time.Now())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(reqs)
	})

	admin.Post("/cancel-requests/:id/resolve", func(c *fiber.Ctx) error {
		var req struct {
			Approve bool   `json:"approve"`
			Reason  string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		request, notes, err := cancellationService.Resolve(c.Params("id"), req.Approve, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		notifier.Dispatch(notes)
		return c.JSON(request)
	})

	admin.Post("/missions/:id/extend", func(c *fiber.Ctx) error {
		mission, err := letterService.ExtendMission(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(mission)
	})

	// Manual penalty application for cases the automation cannot see,
	// e.g. a no_address mark on a stuck match.
	admin.Post("/reputation/penalty", func(c *fiber.Ctx) error {
		var req struct {
			UserID  string `json:"user_id"`
			Event   string `json:"event"`
			MatchID string `json:"match_id"`
			Reason  string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		event := services.ReputationEvent(req.Event)
		if event != services.EventLateResponse && event != services.EventNoAddress {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "event must be late_response or no_address"})
		}

		rep, err := reputationService.Apply(reputationService.DB, req.UserID, event, req.MatchID, req.Reason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rep)
	})

	// Manual sweep trigger for cron retries and backfills. An explicit
	// RFC3339 "now" lets an operator replay a missed day.
	admin.Post("/escalation/run", func(c *fiber.Ctx) error {
		now := time.Now()
		if at := c.Query("at"); at != "" {
			parsed, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid 'at' timestamp", "cause": err.Error()})
			}
			now = parsed
		}

		report, err := escalationService.RunSweep(now)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(report)
	})
}
