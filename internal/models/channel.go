package models

// ChannelVisibility represents whether a channel is public or private
type ChannelVisibility string

const (
	ChannelPublic  ChannelVisibility = "public"
	ChannelPrivate ChannelVisibility = "private"
)

// Channel is a conversation stream in the user's Slack workspace.
// Channels are immutable once fetched; only the per-user selection pointer
// (see AppState) changes.
type Channel struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Visibility  ChannelVisibility `json:"visibility"`
	MemberCount int               `json:"memberCount,omitempty"`
	Topic       string            `json:"topic,omitempty"`
	Purpose     string            `json:"purpose,omitempty"`
}

// ChannelListResponse is the response for GET /api/channels, partitioned by
// visibility for display. Ordering within each partition is whatever Slack
// returned; the backend does not re-sort.
type ChannelListResponse struct {
	Public  []Channel `json:"public"`
	Private []Channel `json:"private"`
	Total   int       `json:"total"`
}

// PartitionChannels splits a channel list by visibility, preserving order
func PartitionChannels(channels []Channel) ChannelListResponse {
	resp := ChannelListResponse{
		Public:  []Channel{},
		Private: []Channel{},
		Total:   len(channels),
	}
	for _, ch := range channels {
		if ch.Visibility == ChannelPrivate {
			resp.Private = append(resp.Private, ch)
		} else {
			resp.Public = append(resp.Public, ch)
		}
	}
	return resp
}
