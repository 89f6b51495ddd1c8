package services

import (
	"context"
	"fmt"
	"time"

	"slacksum/internal/models"
	"slacksum/internal/slack"

	gocache "github.com/patrickmn/go-cache"
)

const (
	channelListCacheExpiry = 5 * time.Minute
	channelListCachePurge  = 10 * time.Minute
)

// ChannelService lists the user's Slack channels, partitioned by
// visibility. Results are cached per user for a few minutes so panel
// refreshes do not hammer the Slack API.
type ChannelService struct {
	slackClient *slack.Client
	users       *UserService
	cache       *gocache.Cache
}

// NewChannelService creates a new channel service
func NewChannelService(slackClient *slack.Client, users *UserService) *ChannelService {
	return &ChannelService{
		slackClient: slackClient,
		users:       users,
		cache:       gocache.New(channelListCacheExpiry, channelListCachePurge),
	}
}

// List returns the user's channels grouped into public and private,
// preserving Slack's ordering within each group.
func (s *ChannelService) List(ctx context.Context, userID string) (*models.ChannelListResponse, error) {
	if cached, found := s.cache.Get(userID); found {
		resp := cached.(models.ChannelListResponse)
		return &resp, nil
	}

	token, err := s.users.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	channels, err := s.slackClient.Channels(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	resp := models.PartitionChannels(channels)

	s.cache.Set(userID, resp, gocache.DefaultExpiration)
	return &resp, nil
}

// Invalidate drops the cached channel list for a user
func (s *ChannelService) Invalidate(userID string) {
	s.cache.Delete(userID)
}
