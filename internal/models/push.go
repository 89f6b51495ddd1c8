package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionKeys are the client-generated Web Push encryption keys
type SubscriptionKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh"`
	Auth   string `bson:"auth" json:"auth"`
}

// PushSubscription is a registered web-push endpoint for one user's one
// device. Exactly one row exists per (user, device); it is upserted on the
// device id and removed when delivery reports the endpoint as gone.
type PushSubscription struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID   string             `bson:"userId" json:"userId"`
	DeviceID string             `bson:"deviceId" json:"deviceId"`
	Endpoint string             `bson:"endpoint" json:"endpoint"`
	Keys     SubscriptionKeys   `bson:"keys" json:"keys"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SubscribeRequest is the request body for POST /api/push/subscribe
type SubscribeRequest struct {
	DeviceID string           `json:"deviceId"`
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// SendNotificationRequest is the agent-facing request body for
// POST /api/push/send. If DeviceID is empty the notification fans out to all
// of the user's registered devices.
type SendNotificationRequest struct {
	UserID   string                 `json:"user_id"`
	DeviceID string                 `json:"device_id,omitempty"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	URL      string                 `json:"url,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// NotificationPayload is the JSON document delivered to the service worker
type NotificationPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon,omitempty"`
	Badge string                 `json:"badge,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// DeliveryReport summarizes one notification fan-out. Targeted=0 means there
// was nothing to deliver, which is not an error.
type DeliveryReport struct {
	Delivered int `json:"sentCount"`
	Targeted  int `json:"totalDevices"`
}

// PushStatusResponse is the response for GET /api/push/status
type PushStatusResponse struct {
	HasSubscription bool `json:"hasSubscription"`
	DeviceCount     int  `json:"deviceCount"`
}
