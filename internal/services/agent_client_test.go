package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"slacksum/internal/models"
)

func TestAgentSummarizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer agent-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req models.AgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.UserID != "U1" || req.ChannelName != "general" {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"response":"summary text","should_notify":true,"notification_title":"heads up"}`)
	}))
	defer server.Close()

	client := NewAgentClient(server.URL, "agent-key")
	result, err := client.Summarize(context.Background(), models.AgentRequest{
		UserID:      "U1",
		ChannelID:   "C1",
		ChannelName: "general",
		Messages:    "[alice]: hi",
		UserQuery:   DefaultUserQuery,
	})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if result.Response != "summary text" {
		t.Errorf("response = %q", result.Response)
	}
	if !result.ShouldNotify || result.NotificationTitle != "heads up" {
		t.Errorf("snake_case notify fields not normalized: %+v", result)
	}
}

func TestAgentSummarizeDisabled(t *testing.T) {
	client := NewAgentClient("", "")
	if client.Enabled() {
		t.Error("client with no URL must report disabled")
	}
	_, err := client.Summarize(context.Background(), models.AgentRequest{})
	if !errors.Is(err, ErrAgentUnreachable) {
		t.Fatalf("err = %v, want ErrAgentUnreachable", err)
	}
}

func TestAgentSummarizeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewAgentClient(server.URL, "")
	_, err := client.Summarize(context.Background(), models.AgentRequest{})
	if !errors.Is(err, ErrAgentUnreachable) {
		t.Fatalf("err = %v, want ErrAgentUnreachable", err)
	}
}

func TestAgentSummarizeRejected(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewAgentClient(server.URL, "")
		_, err := client.Summarize(context.Background(), models.AgentRequest{})
		server.Close()
		if !errors.Is(err, ErrAgentRejected) {
			t.Errorf("status %d: err = %v, want ErrAgentRejected", status, err)
		}
	}
}

func TestAgentSummarizeMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	client := NewAgentClient(server.URL, "")
	_, err := client.Summarize(context.Background(), models.AgentRequest{})
	if !errors.Is(err, ErrAgentRejected) {
		t.Fatalf("err = %v, want ErrAgentRejected", err)
	}
}
