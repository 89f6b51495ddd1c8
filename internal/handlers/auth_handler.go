package handlers

import (
	"log"
	"time"

	"slacksum/internal/middleware"
	"slacksum/internal/models"
	"slacksum/internal/services"
	"slacksum/internal/slack"
	"slacksum/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const oauthStateCookie = "slacksum_oauth_state"

// AuthHandler handles the Slack OAuth flow and session endpoints
type AuthHandler struct {
	oauth       *slack.OAuthClient
	users       *services.UserService
	channels    *services.ChannelService
	sessionAuth *auth.SessionAuth
	appURL      string
	sessionTTL  time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(oauth *slack.OAuthClient, users *services.UserService, channels *services.ChannelService, sessionAuth *auth.SessionAuth, appURL string, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		oauth:       oauth,
		users:       users,
		channels:    channels,
		sessionAuth: sessionAuth,
		appURL:      appURL,
		sessionTTL:  sessionTTL,
	}
}

// Start redirects the browser to Slack's authorization page.
// GET /api/auth/slack
func (h *AuthHandler) Start(c *fiber.Ctx) error {
	state := uuid.NewString()

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(h.oauth.AuthorizeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback completes the OAuth exchange and establishes a session.
// GET /api/auth/slack/callback
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if h.sessionAuth == nil {
		log.Printf("⚠️  OAuth callback hit without JWT_SECRET configured; cannot establish a session")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Session auth is not configured",
		})
	}

	if errParam := c.Query("error"); errParam != "" {
		log.Printf("⚠️  OAuth denied: %s", errParam)
		return c.Redirect(h.appURL+"?auth_error=access_denied", fiber.StatusTemporaryRedirect)
	}

	state := c.Query("state")
	expected := c.Cookies(oauthStateCookie)
	if state == "" || expected == "" || state != expected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid OAuth state",
		})
	}
	c.ClearCookie(oauthStateCookie)

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing authorization code",
		})
	}

	result, err := h.oauth.Exchange(c.Context(), code)
	if err != nil {
		log.Printf("❌ OAuth exchange failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Slack authorization failed",
		})
	}

	if _, err := h.users.Upsert(c.Context(), result.UserID, result.TeamID, result.TeamName, result.AccessToken); err != nil {
		log.Printf("❌ Failed to save user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save user",
		})
	}

	// A fresh token may see different channels
	h.channels.Invalidate(result.UserID)

	token, err := h.sessionAuth.GenerateSessionToken(result.UserID, result.TeamID)
	if err != nil {
		log.Printf("❌ Failed to issue session token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(h.sessionTTL),
	})

	return c.Redirect(h.appURL, fiber.StatusTemporaryRedirect)
}

// Logout clears the session cookie.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(middleware.SessionCookieName)
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the authenticated user's profile.
// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	user, err := h.users.Get(c.Context(), userID)
	if err != nil {
		return c.JSON(models.AuthStatusResponse{Authenticated: false})
	}

	profile := user.Profile()
	return c.JSON(models.AuthStatusResponse{
		Authenticated: true,
		User:          &profile,
	})
}
