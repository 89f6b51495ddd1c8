package models

import "testing"

func TestNormalizeAgentResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    AgentResult
		wantErr bool
	}{
		{
			name: "canonical response",
			body: `{"response":"summary text","shouldNotify":true,"notificationTitle":"Heads up","notificationBody":"3 action items"}`,
			want: AgentResult{
				Response:          "summary text",
				ShouldNotify:      true,
				NotificationTitle: "Heads up",
				NotificationBody:  "3 action items",
			},
		},
		{
			name: "legacy message alias",
			body: `{"message":"summary via alias"}`,
			want: AgentResult{Response: "summary via alias"},
		},
		{
			name: "response wins over message",
			body: `{"response":"canonical","message":"legacy"}`,
			want: AgentResult{Response: "canonical"},
		},
		{
			name: "snake_case notification fields",
			body: `{"response":"ok","should_notify":true,"notification_title":"T","notification_body":"B"}`,
			want: AgentResult{
				Response:          "ok",
				ShouldNotify:      true,
				NotificationTitle: "T",
				NotificationBody:  "B",
			},
		},
		{
			name: "camelCase wins over snake_case",
			body: `{"response":"ok","notificationTitle":"Camel","notification_title":"Snake"}`,
			want: AgentResult{Response: "ok", NotificationTitle: "Camel"},
		},
		{
			name:    "invalid json",
			body:    `{"response":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAgentResponse([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Response != tt.want.Response {
				t.Errorf("Response = %q, want %q", got.Response, tt.want.Response)
			}
			if got.ShouldNotify != tt.want.ShouldNotify {
				t.Errorf("ShouldNotify = %v, want %v", got.ShouldNotify, tt.want.ShouldNotify)
			}
			if got.NotificationTitle != tt.want.NotificationTitle {
				t.Errorf("NotificationTitle = %q, want %q", got.NotificationTitle, tt.want.NotificationTitle)
			}
			if got.NotificationBody != tt.want.NotificationBody {
				t.Errorf("NotificationBody = %q, want %q", got.NotificationBody, tt.want.NotificationBody)
			}
		})
	}
}

func TestNormalizeAgentResponseReminder(t *testing.T) {
	body := `{"response":"ok","reminder":{"title":"Follow up","dueDate":"2026-09-02","dueTime":"10:30"}}`

	got, err := NormalizeAgentResponse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reminder == nil {
		t.Fatal("expected a reminder")
	}
	if got.Reminder.Title != "Follow up" {
		t.Errorf("reminder title = %q, want %q", got.Reminder.Title, "Follow up")
	}
	if got.Reminder.DueDate != "2026-09-02" || got.Reminder.DueTime != "10:30" {
		t.Errorf("reminder due = %q %q", got.Reminder.DueDate, got.Reminder.DueTime)
	}
}
