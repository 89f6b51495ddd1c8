package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"slacksum/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://slack.com/api"

// ErrSlackAPI is returned when the Slack API responds ok=false
var ErrSlackAPI = errors.New("slack api error")

// Client is a minimal Slack Web API client scoped to what the
// summarization flow needs: channel listing, history and user lookup.
// All calls go through a shared rate limiter (Slack tier limits).
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userCache  *gocache.Cache // user ID -> display name
}

// NewClient creates a Slack client
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 3), // ~1 req/sec with small bursts
		userCache:  gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// NewClientWithBaseURL creates a client pointed at a custom API base (used in tests)
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type conversationsListResponse struct {
	apiEnvelope
	Channels []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		IsPrivate  bool   `json:"is_private"`
		IsMember   bool   `json:"is_member"`
		NumMembers int    `json:"num_members"`
		Topic      struct {
			Value string `json:"value"`
		} `json:"topic"`
		Purpose struct {
			Value string `json:"value"`
		} `json:"purpose"`
	} `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type conversationsHistoryResponse struct {
	apiEnvelope
	Messages []struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		User    string `json:"user"`
		Text    string `json:"text"`
		TS      string `json:"ts"`
	} `json:"messages"`
	HasMore bool `json:"has_more"`
}

type usersInfoResponse struct {
	apiEnvelope
	User struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Profile struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user"`
}

func (c *Client) call(ctx context.Context, token, method string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode slack response: %w", err)
	}

	return nil
}

// Channels lists the channels the authenticated user is a member of,
// public and private, in the order Slack returns them.
func (c *Client) Channels(ctx context.Context, token string) ([]models.Channel, error) {
	var channels []models.Channel
	cursor := ""

	for {
		params := url.Values{}
		params.Set("types", "public_channel,private_channel")
		params.Set("exclude_archived", "true")
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp conversationsListResponse
		if err := c.call(ctx, token, "conversations.list", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("%w: conversations.list: %s", ErrSlackAPI, resp.Error)
		}

		for _, ch := range resp.Channels {
			if !ch.IsMember {
				continue
			}
			visibility := models.ChannelPublic
			if ch.IsPrivate {
				visibility = models.ChannelPrivate
			}
			channels = append(channels, models.Channel{
				ID:          ch.ID,
				Name:        ch.Name,
				Visibility:  visibility,
				MemberCount: ch.NumMembers,
				Topic:       ch.Topic.Value,
				Purpose:     ch.Purpose.Value,
			})
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return channels, nil
}

// ChannelMessages fetches channel messages newer than afterTS, oldest first.
// afterTS is an opaque Slack timestamp; empty means fetch the recent window.
// Bot messages and channel events (joins, topic changes) are filtered out.
func (c *Client) ChannelMessages(ctx context.Context, token, channelID, afterTS string) ([]models.SourceMessage, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("limit", "100")
	if afterTS != "" {
		params.Set("oldest", afterTS)
	}

	var resp conversationsHistoryResponse
	if err := c.call(ctx, token, "conversations.history", params, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%w: conversations.history: %s", ErrSlackAPI, resp.Error)
	}

	var messages []models.SourceMessage
	for _, m := range resp.Messages {
		if m.Type != "message" || m.Subtype != "" || m.User == "" {
			continue
		}
		// The oldest param is inclusive on some workspaces; skip the cursor message itself
		if afterTS != "" && m.TS == afterTS {
			continue
		}
		name, err := c.UserName(ctx, token, m.User)
		if err != nil {
			name = m.User
		}
		messages = append(messages, models.SourceMessage{
			TS:        m.TS,
			User:      m.User,
			UserName:  name,
			Text:      m.Text,
			Timestamp: tsToTime(m.TS),
		})
	}

	// conversations.history returns newest first. The ts token is an
	// opaque cursor, so reverse the page instead of comparing tokens.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// UserName resolves a Slack user ID to a display name, caching results
func (c *Client) UserName(ctx context.Context, token, userID string) (string, error) {
	if cached, found := c.userCache.Get(userID); found {
		return cached.(string), nil
	}

	params := url.Values{}
	params.Set("user", userID)

	var resp usersInfoResponse
	if err := c.call(ctx, token, "users.info", params, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("%w: users.info: %s", ErrSlackAPI, resp.Error)
	}

	name := resp.User.Profile.DisplayName
	if name == "" {
		name = resp.User.Profile.RealName
	}
	if name == "" {
		name = resp.User.Name
	}

	c.userCache.Set(userID, name, gocache.DefaultExpiration)
	return name, nil
}

// tsToTime converts a Slack "seconds.micros" timestamp to time.Time
func tsToTime(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
