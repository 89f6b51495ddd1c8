package handlers

import (
	"log"

	"slacksum/internal/models"
	"slacksum/internal/session"

	"github.com/gofiber/fiber/v2"
)

// StateHandler serves the per-user application state (selected channel, device)
type StateHandler struct {
	sessions *session.Manager
}

// NewStateHandler creates a new state handler
func NewStateHandler(sessions *session.Manager) *StateHandler {
	return &StateHandler{sessions: sessions}
}

// Get returns the user's application state.
// GET /api/state
func (h *StateHandler) Get(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	app, err := h.sessions.App(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load app state: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load state",
		})
	}

	return c.JSON(app)
}

// SelectChannel records the user's channel selection. An empty channelId
// deselects.
// PUT /api/state/channel
func (h *StateHandler) SelectChannel(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req models.SelectChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	app, err := h.sessions.SelectChannel(c.Context(), userID, req.ChannelID, req.ChannelName)
	if err != nil {
		log.Printf("❌ Failed to select channel: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update state",
		})
	}

	return c.JSON(app)
}

// SetDevice records the browser device ID for push targeting.
// PUT /api/state/device
func (h *StateHandler) SetDevice(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req models.SetDeviceRequest
	if err := c.BodyParser(&req); err != nil || req.DeviceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "deviceId is required",
		})
	}

	app, err := h.sessions.SetDevice(c.Context(), userID, req.DeviceID)
	if err != nil {
		log.Printf("❌ Failed to set device: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update state",
		})
	}

	return c.JSON(app)
}
