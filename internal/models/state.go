package models

import "time"

// AppState is the persisted per-user application state: which channel is
// selected and which device id this user's browser registered for push.
// One document per user, upserted on every change and rehydrated when the
// session is attached.
type AppState struct {
	UserID              string    `bson:"userId" json:"-"`
	SelectedChannelID   string    `bson:"selectedChannelId,omitempty" json:"selectedChannelId,omitempty"`
	SelectedChannelName string    `bson:"selectedChannelName,omitempty" json:"selectedChannelName,omitempty"`
	DeviceID            string    `bson:"deviceId,omitempty" json:"deviceId,omitempty"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SelectChannelRequest is the request body for PUT /api/state/channel.
// An empty ChannelID deselects and returns the user to the channel directory;
// no conversation data is discarded.
type SelectChannelRequest struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
}

// SetDeviceRequest is the request body for PUT /api/state/device
type SetDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

// QuickAction is a one-tap prompt shortcut shown above the chat input
type QuickAction struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}
