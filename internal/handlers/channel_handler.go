package handlers

import (
	"errors"
	"log"

	"slacksum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ChannelHandler serves the channel directory
type ChannelHandler struct {
	channels *services.ChannelService
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// List returns the user's channels grouped by visibility.
// GET /api/channels
func (h *ChannelHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	resp, err := h.channels.List(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not connected to Slack",
			})
		}
		log.Printf("❌ Failed to list channels: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to fetch channels from Slack",
		})
	}

	return c.JSON(resp)
}
