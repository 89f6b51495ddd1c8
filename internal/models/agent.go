package models

import "encoding/json"

// AgentRequest is the payload sent to the external summarization agent.
// Messages is the pre-formatted "[name]: text" batch, one line per source
// message.
type AgentRequest struct {
	UserID      string `json:"user_id"`
	TeamID      string `json:"team_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Messages    string `json:"messages"`
	UserQuery   string `json:"user_query"`
	DeviceID    string `json:"device_id,omitempty"`
}

// AgentReminder is the reminder an agent response may attach
type AgentReminder struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate"`
	DueTime     string `json:"dueTime"`
}

// AgentResult is the single normalized contract for agent responses.
// Every wire variant is converted into this shape at the client boundary so
// downstream code never branches on field presence.
type AgentResult struct {
	Response          string         `json:"response"`
	ShouldNotify      bool           `json:"shouldNotify,omitempty"`
	NotificationTitle string         `json:"notificationTitle,omitempty"`
	NotificationBody  string         `json:"notificationBody,omitempty"`
	Reminder          *AgentReminder `json:"reminder,omitempty"`
}

// agentWire accepts the known agent response variants: the canonical
// "response" field and the legacy "message" alias, plus snake_case spellings
// of the notification fields from older agent builds.
type agentWire struct {
	Response          string         `json:"response"`
	Message           string         `json:"message"`
	ShouldNotify      bool           `json:"shouldNotify"`
	ShouldNotifySnake bool           `json:"should_notify"`
	NotificationTitle string         `json:"notificationTitle"`
	NotifTitleSnake   string         `json:"notification_title"`
	NotificationBody  string         `json:"notificationBody"`
	NotifBodySnake    string         `json:"notification_body"`
	Reminder          *AgentReminder `json:"reminder"`
}

// NormalizeAgentResponse decodes an agent response body into the canonical
// AgentResult, resolving field aliases
func NormalizeAgentResponse(body []byte) (*AgentResult, error) {
	var wire agentWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	result := &AgentResult{
		Response:          wire.Response,
		ShouldNotify:      wire.ShouldNotify || wire.ShouldNotifySnake,
		NotificationTitle: wire.NotificationTitle,
		NotificationBody:  wire.NotificationBody,
		Reminder:          wire.Reminder,
	}
	if result.Response == "" {
		result.Response = wire.Message
	}
	if result.NotificationTitle == "" {
		result.NotificationTitle = wire.NotifTitleSnake
	}
	if result.NotificationBody == "" {
		result.NotificationBody = wire.NotifBodySnake
	}
	return result, nil
}
