package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"slacksum/internal/models"
)

func TestChannelsFiltersAndPaginates(t *testing.T) {
	var page int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations.list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer xoxp-test" {
			t.Errorf("Authorization = %q", got)
		}
		if atomic.AddInt32(&page, 1) == 1 {
			if r.URL.Query().Get("cursor") != "" {
				t.Error("first page should carry no cursor")
			}
			fmt.Fprint(w, `{"ok":true,"channels":[
				{"id":"C1","name":"general","is_member":true,"num_members":12,
				 "topic":{"value":"announcements"},"purpose":{"value":"company-wide"}},
				{"id":"C2","name":"not-joined","is_member":false}
			],"response_metadata":{"next_cursor":"page2"}}`)
			return
		}
		if r.URL.Query().Get("cursor") != "page2" {
			t.Errorf("second page cursor = %q", r.URL.Query().Get("cursor"))
		}
		fmt.Fprint(w, `{"ok":true,"channels":[
			{"id":"C3","name":"secrets","is_member":true,"is_private":true}
		],"response_metadata":{"next_cursor":""}}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	channels, err := client.Channels(context.Background(), "xoxp-test")
	if err != nil {
		t.Fatalf("Channels failed: %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2 (non-members excluded)", len(channels))
	}
	if channels[0].ID != "C1" || channels[0].Visibility != models.ChannelPublic {
		t.Errorf("first channel = %+v", channels[0])
	}
	if channels[0].MemberCount != 12 || channels[0].Topic != "announcements" {
		t.Errorf("channel metadata not carried: %+v", channels[0])
	}
	if channels[1].ID != "C3" || channels[1].Visibility != models.ChannelPrivate {
		t.Errorf("second channel = %+v", channels[1])
	}
}

func TestChannelsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"invalid_auth"}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.Channels(context.Background(), "bad-token")
	if !errors.Is(err, ErrSlackAPI) {
		t.Fatalf("err = %v, want ErrSlackAPI", err)
	}
}

func TestChannelMessagesFiltersAndOrders(t *testing.T) {
	var userInfoCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations.history":
			if got := r.URL.Query().Get("oldest"); got != "1700000100.000000" {
				t.Errorf("oldest = %q", got)
			}
			// Newest first, with noise to filter and the cursor message itself
			fmt.Fprint(w, `{"ok":true,"messages":[
				{"type":"message","ts":"1700000300.000000","user":"U1","text":"newest"},
				{"type":"message","subtype":"channel_join","ts":"1700000250.000000","user":"U2","text":"joined"},
				{"type":"message","ts":"1700000200.000000","user":"U1","text":"oldest real"},
				{"type":"message","ts":"1700000150.000000","text":"bot message"},
				{"type":"message","ts":"1700000100.000000","user":"U1","text":"cursor message"}
			]}`)
		case "/users.info":
			atomic.AddInt32(&userInfoCalls, 1)
			fmt.Fprint(w, `{"ok":true,"user":{"name":"alice.l","profile":{"display_name":"alice"}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	messages, err := client.ChannelMessages(context.Background(), "xoxp-test", "C1", "1700000100.000000")
	if err != nil {
		t.Fatalf("ChannelMessages failed: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2 (events, bots and cursor excluded)", len(messages))
	}
	if messages[0].Text != "oldest real" || messages[1].Text != "newest" {
		t.Errorf("messages not oldest-first: %q then %q", messages[0].Text, messages[1].Text)
	}
	if messages[0].UserName != "alice" {
		t.Errorf("user name = %q, want resolved display name", messages[0].UserName)
	}
	if messages[0].Timestamp.IsZero() {
		t.Error("timestamp not derived from ts")
	}

	// Both messages are from U1, resolved once through the cache
	if n := atomic.LoadInt32(&userInfoCalls); n != 1 {
		t.Errorf("users.info called %d times, want 1", n)
	}
}

func TestChannelMessagesNameFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations.history":
			fmt.Fprint(w, `{"ok":true,"messages":[
				{"type":"message","ts":"1700000300.000000","user":"U9","text":"hi"}
			]}`)
		case "/users.info":
			fmt.Fprint(w, `{"ok":false,"error":"user_not_found"}`)
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	messages, err := client.ChannelMessages(context.Background(), "xoxp-test", "C1", "")
	if err != nil {
		t.Fatalf("ChannelMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].UserName != "U9" {
		t.Errorf("expected fallback to the raw user ID, got %+v", messages)
	}
}

func TestUserNameResolutionOrder(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"display name wins", `{"ok":true,"user":{"name":"u","profile":{"display_name":"disp","real_name":"Real"}}}`, "disp"},
		{"real name next", `{"ok":true,"user":{"name":"u","profile":{"real_name":"Real"}}}`, "Real"},
		{"login name last", `{"ok":true,"user":{"name":"u","profile":{}}}`, "u"},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client := NewClientWithBaseURL(server.URL)
			got, err := client.UserName(context.Background(), "tok", fmt.Sprintf("U%d", i))
			if err != nil {
				t.Fatalf("UserName failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestChannelMessagesOpaqueTSOrdering(t *testing.T) {
	// Ordering must come from reversing the newest-first page, never from
	// interpreting the ts token, so non-numeric tokens order fine too.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations.history":
			fmt.Fprint(w, `{"ok":true,"messages":[
				{"type":"message","ts":"tok-c","user":"U1","text":"third"},
				{"type":"message","ts":"tok-b","user":"U1","text":"second"},
				{"type":"message","ts":"tok-a","user":"U1","text":"first"}
			]}`)
		case "/users.info":
			fmt.Fprint(w, `{"ok":true,"user":{"name":"alice","profile":{}}}`)
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	messages, err := client.ChannelMessages(context.Background(), "xoxp-test", "C1", "")
	if err != nil {
		t.Fatalf("ChannelMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Text != want {
			t.Errorf("messages[%d] = %q, want %q", i, messages[i].Text, want)
		}
	}
}
