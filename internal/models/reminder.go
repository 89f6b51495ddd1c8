package models

import (
	"fmt"
	"time"
)

// ReminderOrigin distinguishes agent-derived reminders from user-created ones
type ReminderOrigin string

const (
	ReminderOriginAuto   ReminderOrigin = "auto"
	ReminderOriginManual ReminderOrigin = "manual"
)

// Reminder is a derived or user-created action item. DueDate/DueTime are
// stored as the user entered them ("2006-01-02" / "15:04"); due comparisons
// interpret them in UTC.
type Reminder struct {
	ID          string         `bson:"reminderId" json:"id"`
	UserID      string         `bson:"userId" json:"-"`
	Title       string         `bson:"title" json:"title"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	ChannelID   string         `bson:"channelId,omitempty" json:"channelId,omitempty"`
	ChannelName string         `bson:"channelName,omitempty" json:"channelName,omitempty"`
	DueDate     string         `bson:"dueDate" json:"dueDate"`
	DueTime     string         `bson:"dueTime" json:"dueTime"`
	IsCompleted bool           `bson:"isCompleted" json:"isCompleted"`
	IsRead      bool           `bson:"isRead" json:"isRead"`
	Origin      ReminderOrigin `bson:"origin" json:"origin"`
	NotifiedAt  *time.Time     `bson:"notifiedAt,omitempty" json:"-"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
}

// DueAt parses the reminder's due date and time as a UTC instant
func (r *Reminder) DueAt() (time.Time, error) {
	due, err := time.Parse("2006-01-02 15:04", fmt.Sprintf("%s %s", r.DueDate, r.DueTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date/time %q %q: %w", r.DueDate, r.DueTime, err)
	}
	return due.UTC(), nil
}

// ReminderPartitions groups reminders for the notifications panel.
// A completed reminder never appears in either active partition, regardless
// of its read flag.
type ReminderPartitions struct {
	ActiveUnread []Reminder `json:"activeUnread"`
	ActiveRead   []Reminder `json:"activeRead"`
	Completed    []Reminder `json:"completed"`
}

// PartitionReminders splits reminders into {active unread, active read,
// completed}, preserving input order within each partition
func PartitionReminders(reminders []Reminder) ReminderPartitions {
	parts := ReminderPartitions{
		ActiveUnread: []Reminder{},
		ActiveRead:   []Reminder{},
		Completed:    []Reminder{},
	}
	for _, r := range reminders {
		switch {
		case r.IsCompleted:
			parts.Completed = append(parts.Completed, r)
		case r.IsRead:
			parts.ActiveRead = append(parts.ActiveRead, r)
		default:
			parts.ActiveUnread = append(parts.ActiveUnread, r)
		}
	}
	return parts
}

// CreateReminderRequest is the request body for POST /api/reminders
type CreateReminderRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ChannelID   string `json:"channelId,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
	DueDate     string `json:"dueDate"`
	DueTime     string `json:"dueTime"`
}

// UpdateReminderRequest is the request body for PATCH /api/reminders/:id.
// Nil fields are left unchanged.
type UpdateReminderRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	DueTime     *string `json:"dueTime,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
	IsRead      *bool   `json:"isRead,omitempty"`
}
