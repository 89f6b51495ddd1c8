package handlers

import (
	"crypto/subtle"
	"errors"
	"log"

	"slacksum/internal/models"
	"slacksum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PushHandler manages Web Push subscriptions and the agent-facing send endpoint
type PushHandler struct {
	push           *services.PushService
	vapidPublicKey string
	agentAPIKey    string
}

// NewPushHandler creates a new push handler
func NewPushHandler(push *services.PushService, vapidPublicKey, agentAPIKey string) *PushHandler {
	return &PushHandler{
		push:           push,
		vapidPublicKey: vapidPublicKey,
		agentAPIKey:    agentAPIKey,
	}
}

// PublicKey returns the VAPID public key the browser needs to subscribe.
// GET /api/push/public-key
func (h *PushHandler) PublicKey(c *fiber.Ctx) error {
	if !h.push.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Push notifications are not configured",
		})
	}
	return c.JSON(fiber.Map{"publicKey": h.vapidPublicKey})
}

// Subscribe registers or refreshes a device's push subscription.
// POST /api/push/subscribe
func (h *PushHandler) Subscribe(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req models.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.DeviceID == "" || req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "deviceId, endpoint and keys are required",
		})
	}

	if err := h.push.Subscribe(c.Context(), userID, req); err != nil {
		log.Printf("❌ Failed to save push subscription: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save subscription",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

// Unsubscribe removes a device's push subscription.
// POST /api/push/unsubscribe
func (h *PushHandler) Unsubscribe(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := c.BodyParser(&req); err != nil || req.DeviceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "deviceId is required",
		})
	}

	if err := h.push.Unsubscribe(c.Context(), userID, req.DeviceID); err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Subscription not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove subscription",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// Status reports subscription state for the requesting device.
// GET /api/push/status?deviceId=...
func (h *PushHandler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	deviceID := c.Query("deviceId")

	status, err := h.push.Status(c.Context(), userID, deviceID)
	if err != nil {
		log.Printf("❌ Failed to load push status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load subscription status",
		})
	}

	return c.JSON(status)
}

// Send delivers a notification to a user's devices. This endpoint is called
// by the summarization agent, not the browser, and is guarded by a shared
// API key instead of a session.
// POST /api/push/send
func (h *PushHandler) Send(c *fiber.Ctx) error {
	if h.agentAPIKey == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Agent push endpoint is not configured",
		})
	}

	provided := c.Get("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.agentAPIKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}

	var req models.SendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.UserID == "" || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and title are required",
		})
	}

	report, err := h.push.Notify(c.Context(), req.UserID, req.DeviceID, models.NotificationPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		log.Printf("❌ Push fan-out failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send notification",
		})
	}

	return c.JSON(report)
}
