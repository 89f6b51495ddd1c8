package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OAuth scopes requested for the signing user's token. History scopes are
// what lets the app read channel messages on the user's behalf.
var userScopes = []string{
	"channels:read",
	"channels:history",
	"groups:read",
	"groups:history",
	"users:read",
}

// OAuthConfig holds Slack OAuth credentials
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthClient performs the Slack OAuth v2 user-token flow
type OAuthClient struct {
	config     OAuthConfig
	baseURL    string
	httpClient *http.Client
}

// NewOAuthClient creates an OAuth client
func NewOAuthClient(config OAuthConfig) *OAuthClient {
	return &OAuthClient{
		config:     config,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewOAuthClientWithBaseURL creates an OAuth client pointed at a custom API base (used in tests)
func NewOAuthClientWithBaseURL(config OAuthConfig, baseURL string) *OAuthClient {
	c := NewOAuthClient(config)
	c.baseURL = baseURL
	return c
}

// AuthorizeURL builds the Slack authorization URL for the given CSRF state
func (c *OAuthClient) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.config.ClientID)
	params.Set("user_scope", strings.Join(userScopes, ","))
	params.Set("redirect_uri", c.config.RedirectURL)
	params.Set("state", state)
	return "https://slack.com/oauth/v2/authorize?" + params.Encode()
}

// TokenResult is the outcome of an authorization code exchange
type TokenResult struct {
	AccessToken string
	UserID      string
	TeamID      string
	TeamName    string
}

type oauthAccessResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Team  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	AuthedUser struct {
		ID          string `json:"id"`
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	} `json:"authed_user"`
}

// Exchange exchanges an authorization code for a user access token
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*TokenResult, error) {
	form := url.Values{}
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", c.config.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth.v2.access", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange failed: %w", err)
	}
	defer resp.Body.Close()

	var body oauthAccessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode oauth response: %w", err)
	}

	if !body.OK {
		return nil, fmt.Errorf("%w: oauth.v2.access: %s", ErrSlackAPI, body.Error)
	}

	if body.AuthedUser.AccessToken == "" {
		return nil, errors.New("oauth response missing user access token")
	}

	return &TokenResult{
		AccessToken: body.AuthedUser.AccessToken,
		UserID:      body.AuthedUser.ID,
		TeamID:      body.Team.ID,
		TeamName:    body.Team.Name,
	}, nil
}
