package handlers

import (
	"log"

	"slacksum/internal/models"
	"slacksum/internal/session"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler serves per-channel conversation logs
type ConversationHandler struct {
	sessions *session.Manager
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(sessions *session.Manager) *ConversationHandler {
	return &ConversationHandler{sessions: sessions}
}

// Open marks a channel as opened: it ensures the welcome turn exists and
// returns the channel's full conversation log.
// POST /api/channels/:id/open
func (h *ConversationHandler) Open(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	channelID := c.Params("id")

	var req struct {
		ChannelName string `json:"channelName"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if _, err := h.sessions.EnsureWelcomeTurn(c.Context(), userID, channelID, req.ChannelName); err != nil {
		log.Printf("❌ Failed to open channel %s: %v", channelID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to open channel",
		})
	}

	turns, err := h.sessions.Turns(c.Context(), userID, channelID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation",
		})
	}

	return c.JSON(models.TurnListResponse{Turns: turns, Total: len(turns)})
}

// Turns returns one channel's conversation log in creation order.
// GET /api/channels/:id/turns
func (h *ConversationHandler) Turns(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	channelID := c.Params("id")

	turns, err := h.sessions.Turns(c.Context(), userID, channelID)
	if err != nil {
		log.Printf("❌ Failed to load turns for channel %s: %v", channelID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation",
		})
	}

	return c.JSON(models.TurnListResponse{Turns: turns, Total: len(turns)})
}

// Clear empties one channel's conversation log. Other channels keep theirs.
// DELETE /api/channels/:id/turns
func (h *ConversationHandler) Clear(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	channelID := c.Params("id")

	if err := h.sessions.ClearChannel(c.Context(), userID, channelID); err != nil {
		log.Printf("❌ Failed to clear channel %s: %v", channelID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear conversation",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// AppendUserTurn records a user-authored chat turn.
// POST /api/channels/:id/turns
func (h *ConversationHandler) AppendUserTurn(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	channelID := c.Params("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Content is required",
		})
	}

	st, err := h.sessions.Attach(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}

	turn := st.NewTurn(channelID, models.RoleUser, req.Content)
	if err := h.sessions.AppendTurn(c.Context(), turn); err != nil {
		log.Printf("❌ Failed to append turn: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save message",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(turn)
}
