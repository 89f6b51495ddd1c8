package handlers

import (
	"errors"
	"log"

	"slacksum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SummarizeHandler triggers fetch-and-summarize cycles
type SummarizeHandler struct {
	orchestrator *services.Orchestrator
}

// NewSummarizeHandler creates a new summarize handler
func NewSummarizeHandler(orchestrator *services.Orchestrator) *SummarizeHandler {
	return &SummarizeHandler{orchestrator: orchestrator}
}

// Run runs one cycle for a channel and returns the assistant turn.
// POST /api/channels/:id/summarize
func (h *SummarizeHandler) Run(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	channelID := c.Params("id")

	var req struct {
		ChannelName string `json:"channelName"`
		UserQuery   string `json:"userQuery,omitempty"`
		DeviceID    string `json:"deviceId,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	turn, err := h.orchestrator.RunCycle(c.Context(), userID, channelID, req.ChannelName, req.UserQuery, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCycleInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A summarization is already running for this channel",
			})
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not connected to Slack",
			})
		case errors.Is(err, services.ErrUpstreamFetch):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to fetch messages from Slack",
			})
		case errors.Is(err, services.ErrAgentRejected):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Summarization service rejected the request",
			})
		default:
			log.Printf("❌ Summarization cycle failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Summarization failed",
			})
		}
	}

	return c.JSON(turn)
}

// Status reports the cycle state for a channel.
// GET /api/channels/:id/summarize/status
func (h *SummarizeHandler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	channelID := c.Params("id")

	return c.JSON(fiber.Map{
		"state": h.orchestrator.State(userID, channelID),
	})
}
