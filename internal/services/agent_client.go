package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slacksum/internal/models"
)

// AgentClient calls the external summarization agent. When no agent URL
// is configured, Summarize returns ErrAgentUnreachable immediately and
// the orchestrator falls back to the local summary.
type AgentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAgentClient creates an agent client. An empty baseURL disables the agent.
func NewAgentClient(baseURL, apiKey string) *AgentClient {
	return &AgentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // LLM responses can be slow
		},
	}
}

// Enabled reports whether an agent URL is configured
func (c *AgentClient) Enabled() bool {
	return c.baseURL != ""
}

// Summarize sends a batch of formatted messages to the agent and returns
// its normalized result. Network failures and a missing configuration map
// to ErrAgentUnreachable; HTTP error statuses map to ErrAgentRejected.
func (c *AgentClient) Summarize(ctx context.Context, req models.AgentRequest) (*models.AgentResult, error) {
	if !c.Enabled() {
		return nil, ErrAgentUnreachable
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrAgentUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrAgentRejected, resp.StatusCode)
	}

	result, err := models.NormalizeAgentResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentRejected, err)
	}

	return result, nil
}
