package handlers

import (
	"errors"
	"log"

	"slacksum/internal/models"
	"slacksum/internal/services"
	"slacksum/internal/session"

	"github.com/gofiber/fiber/v2"
)

// ReminderHandler manages the user's reminder ledger
type ReminderHandler struct {
	sessions *session.Manager
	metrics  *services.Metrics
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(sessions *session.Manager, metrics *services.Metrics) *ReminderHandler {
	return &ReminderHandler{sessions: sessions, metrics: metrics}
}

// List returns the user's reminders partitioned for the notifications panel.
// GET /api/reminders
func (h *ReminderHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	parts, err := h.sessions.Partitions(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load reminders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load reminders",
		})
	}

	return c.JSON(parts)
}

// Create adds a manual reminder.
// POST /api/reminders
func (h *ReminderHandler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req models.CreateReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Title == "" || req.DueDate == "" || req.DueTime == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title, dueDate and dueTime are required",
		})
	}

	reminder, err := h.sessions.CreateReminder(c.Context(), userID, &req)
	if err != nil {
		log.Printf("❌ Failed to create reminder: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create reminder",
		})
	}

	if h.metrics != nil {
		h.metrics.RecordReminderCreated(string(models.ReminderOriginManual))
	}

	return c.Status(fiber.StatusCreated).JSON(reminder)
}

// Update applies a partial update to a reminder.
// PATCH /api/reminders/:id
func (h *ReminderHandler) Update(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reminderID := c.Params("id")

	var req models.UpdateReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	reminder, err := h.sessions.UpdateReminder(c.Context(), userID, reminderID, &req)
	if err != nil {
		return h.reminderError(c, err)
	}

	return c.JSON(reminder)
}

// Delete removes a reminder.
// DELETE /api/reminders/:id
func (h *ReminderHandler) Delete(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reminderID := c.Params("id")

	if err := h.sessions.RemoveReminder(c.Context(), userID, reminderID); err != nil {
		return h.reminderError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkRead marks one reminder as read.
// POST /api/reminders/:id/read
func (h *ReminderHandler) MarkRead(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reminderID := c.Params("id")

	reminder, err := h.sessions.MarkReminderRead(c.Context(), userID, reminderID)
	if err != nil {
		return h.reminderError(c, err)
	}

	return c.JSON(reminder)
}

// MarkComplete marks one reminder as completed.
// POST /api/reminders/:id/complete
func (h *ReminderHandler) MarkComplete(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reminderID := c.Params("id")

	reminder, err := h.sessions.MarkReminderComplete(c.Context(), userID, reminderID)
	if err != nil {
		return h.reminderError(c, err)
	}

	return c.JSON(reminder)
}

// MarkAllRead marks every active unread reminder as read. The frontend
// calls this when the notifications panel closes.
// POST /api/reminders/read-all
func (h *ReminderHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	count, err := h.sessions.MarkAllActiveRead(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to mark reminders read: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update reminders",
		})
	}

	return c.JSON(fiber.Map{"updated": count})
}

func (h *ReminderHandler) reminderError(c *fiber.Ctx, err error) error {
	if errors.Is(err, session.ErrReminderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Reminder not found",
		})
	}
	log.Printf("❌ Reminder operation failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Reminder operation failed",
	})
}
