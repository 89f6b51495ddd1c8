package models

import "time"

// TurnRole identifies who produced a conversation turn
type TurnRole string

const (
	RoleSystem    TurnRole = "system"
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleSource    TurnRole = "source"
)

// SourceMessage is a raw Slack channel message. The TS field is Slack's
// message timestamp and is treated as an opaque ordering/resume token, never
// as a numeric clock. Source messages are immutable once fetched.
type SourceMessage struct {
	TS        string    `bson:"ts" json:"ts"`
	User      string    `bson:"user" json:"user"`
	UserName  string    `bson:"userName,omitempty" json:"user_name,omitempty"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ConversationTurn is one entry in a channel's conversation log.
// Turns are append-only within a channel and ordered by creation time.
// Assistant turns produced by a fetch cycle carry the raw source messages
// that produced them.
type ConversationTurn struct {
	ID             string          `bson:"turnId" json:"id"`
	UserID         string          `bson:"userId" json:"-"`
	ChannelID      string          `bson:"channelId" json:"channelId"`
	Role           TurnRole        `bson:"role" json:"role"`
	Content        string          `bson:"content" json:"content"`
	SourceMessages []SourceMessage `bson:"sourceMessages,omitempty" json:"sourceMessages,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
}

// ChannelCursor marks the last source message processed for a (user, channel)
// pair. Exactly one cursor exists per pair; it is upserted, never duplicated.
type ChannelCursor struct {
	UserID          string    `bson:"userId" json:"userId"`
	ChannelID       string    `bson:"channelId" json:"channelId"`
	ChannelName     string    `bson:"channelName,omitempty" json:"channelName,omitempty"`
	LastProcessedTS string    `bson:"lastProcessedTs,omitempty" json:"lastProcessedTs,omitempty"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

// TurnListResponse is the response for GET /api/channels/:id/turns
type TurnListResponse struct {
	Turns []ConversationTurn `json:"turns"`
	Total int                `json:"total"`
}
