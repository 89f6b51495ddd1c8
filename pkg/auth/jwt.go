package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents an authenticated session user
type User struct {
	ID     string `json:"id"`     // Slack user ID
	TeamID string `json:"teamId"` // Slack workspace (team) ID
}

// ExtractToken extracts the JWT token from an Authorization header value.
// Supports "Bearer <token>" format.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("empty authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty token")
	}

	return token, nil
}

// SessionAuth issues and verifies session JWTs after Slack OAuth
type SessionAuth struct {
	SecretKey     []byte
	SessionExpiry time.Duration // Default: 7 days
}

// NewSessionAuth creates a new session auth instance
func NewSessionAuth(secretKey string, sessionExpiry time.Duration) (*SessionAuth, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}

	if sessionExpiry == 0 {
		sessionExpiry = 7 * 24 * time.Hour
	}

	return &SessionAuth{
		SecretKey:     []byte(secretKey),
		SessionExpiry: sessionExpiry,
	}, nil
}

// SessionClaims represents the session JWT claims
type SessionClaims struct {
	UserID string `json:"sub"`
	TeamID string `json:"teamId"`
	jwt.RegisteredClaims
}

// GenerateSessionToken generates a session token for an authenticated Slack user
func (a *SessionAuth) GenerateSessionToken(userID, teamID string) (string, error) {
	claims := SessionClaims{
		UserID: userID,
		TeamID: teamID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.SessionExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "slacksum",
		},
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := tokenObj.SignedString(a.SecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return token, nil
}

// VerifySessionToken verifies a session token and returns the user
func (a *SessionAuth) VerifySessionToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.SecretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return &User{
			ID:     claims.UserID,
			TeamID: claims.TeamID,
		}, nil
	}

	return nil, errors.New("invalid token")
}
