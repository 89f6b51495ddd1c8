package models

import (
	"testing"
	"time"
)

func TestReminderDueAt(t *testing.T) {
	r := Reminder{DueDate: "2026-09-01", DueTime: "14:30"}

	due, err := r.DueAt()
	if err != nil {
		t.Fatalf("DueAt failed: %v", err)
	}

	want := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("DueAt = %v, want %v", due, want)
	}
}

func TestReminderDueAtInvalid(t *testing.T) {
	tests := []struct {
		name    string
		dueDate string
		dueTime string
	}{
		{"empty", "", ""},
		{"bad date", "tomorrow", "14:30"},
		{"bad time", "2026-09-01", "2pm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reminder{DueDate: tt.dueDate, DueTime: tt.dueTime}
			if _, err := r.DueAt(); err == nil {
				t.Errorf("DueAt(%q, %q) should fail", tt.dueDate, tt.dueTime)
			}
		})
	}
}

func TestPartitionReminders(t *testing.T) {
	reminders := []Reminder{
		{ID: "1"},                                  // active unread
		{ID: "2", IsRead: true},                    // active read
		{ID: "3", IsCompleted: true},               // completed, unread
		{ID: "4", IsCompleted: true, IsRead: true}, // completed, read
		{ID: "5"},                                  // active unread
	}

	parts := PartitionReminders(reminders)

	if got := ids(parts.ActiveUnread); !equal(got, []string{"1", "5"}) {
		t.Errorf("ActiveUnread = %v, want [1 5]", got)
	}
	if got := ids(parts.ActiveRead); !equal(got, []string{"2"}) {
		t.Errorf("ActiveRead = %v, want [2]", got)
	}
	if got := ids(parts.Completed); !equal(got, []string{"3", "4"}) {
		t.Errorf("Completed = %v, want [3 4]", got)
	}
}

func TestPartitionRemindersEmpty(t *testing.T) {
	parts := PartitionReminders(nil)
	if parts.ActiveUnread == nil || parts.ActiveRead == nil || parts.Completed == nil {
		t.Error("partitions should be empty slices, not nil, so they serialize as []")
	}
}

func ids(reminders []Reminder) []string {
	out := make([]string, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, r.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
