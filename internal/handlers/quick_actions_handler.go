package handlers

import (
	"slacksum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// QuickActionsHandler serves the chat shortcut buttons
type QuickActionsHandler struct {
	quickActions *services.QuickActionsService
}

// NewQuickActionsHandler creates a new quick actions handler
func NewQuickActionsHandler(quickActions *services.QuickActionsService) *QuickActionsHandler {
	return &QuickActionsHandler{quickActions: quickActions}
}

// List returns the current quick actions.
// GET /api/quick-actions
func (h *QuickActionsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"actions": h.quickActions.Actions(),
	})
}
