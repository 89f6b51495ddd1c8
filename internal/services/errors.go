package services

import "errors"

// Sentinel errors shared across the service layer. Handlers map these
// to HTTP status codes; the orchestrator maps them to chat fallbacks.
var (
	// ErrCycleInProgress means a fetch-and-summarize cycle is already
	// running for this user and channel.
	ErrCycleInProgress = errors.New("summarization cycle already in progress")

	// ErrNoChannelSelected means the user has not selected a channel yet.
	ErrNoChannelSelected = errors.New("no channel selected")

	// ErrUpstreamFetch means Slack could not be reached or rejected the request.
	ErrUpstreamFetch = errors.New("failed to fetch channel messages")

	// ErrAgentUnreachable means the summarization agent could not be
	// reached at all (network error or no agent configured). The cycle
	// falls back to a locally generated summary.
	ErrAgentUnreachable = errors.New("summarization agent unreachable")

	// ErrAgentRejected means the agent responded with a non-success status.
	ErrAgentRejected = errors.New("summarization agent rejected request")

	// ErrUserNotFound means no user record exists for the given ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrSubscriptionNotFound means no push subscription matched.
	ErrSubscriptionNotFound = errors.New("push subscription not found")
)
