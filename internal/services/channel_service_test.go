package services

import (
	"testing"

	"slacksum/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

func TestChannelCacheInvalidate(t *testing.T) {
	s := NewChannelService(nil, nil)
	s.cache.Set("U1", models.ChannelListResponse{
		Public: []models.Channel{{ID: "C1", Name: "general"}},
	}, gocache.DefaultExpiration)
	s.cache.Set("U2", models.ChannelListResponse{
		Public: []models.Channel{{ID: "C2", Name: "random"}},
	}, gocache.DefaultExpiration)

	s.Invalidate("U1")

	if _, found := s.cache.Get("U1"); found {
		t.Error("invalidated user still has a cached channel list")
	}
	if _, found := s.cache.Get("U2"); !found {
		t.Error("invalidation must be per user")
	}
}
