package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"slacksum/internal/logging"
	"slacksum/internal/models"
	"slacksum/internal/session"

	"github.com/google/uuid"
)

// CycleState tracks where a fetch-and-summarize cycle is
type CycleState string

const (
	CycleIdle        CycleState = "idle"
	CycleFetching    CycleState = "fetching"
	CycleDispatching CycleState = "dispatching"
	CycleDone        CycleState = "done"
	CycleFailed      CycleState = "failed"
)

// DefaultUserQuery is sent to the agent when the user doesn't type one
const DefaultUserQuery = "Summarize these messages and highlight any important items or action items."

const (
	cycleLockTTL    = 5 * time.Minute
	fallbackTailLen = 5
	fallbackMaxLen  = 100
)

// CycleStore persists cycle results. Implemented by SessionStore.
type CycleStore interface {
	Cursor(ctx context.Context, userID, channelID string) (models.ChannelCursor, error)
	CommitCycle(ctx context.Context, turn models.ConversationTurn, cursor models.ChannelCursor, reminder *models.Reminder) error
}

// UserLookup resolves stored users. Implemented by UserService.
type UserLookup interface {
	Get(ctx context.Context, slackUserID string) (*models.User, error)
}

// MessageSource fetches new channel messages. Implemented by slack.Client.
type MessageSource interface {
	ChannelMessages(ctx context.Context, token, channelID, afterTS string) ([]models.SourceMessage, error)
}

// Summarizer produces a summary for a message batch. Implemented by AgentClient.
type Summarizer interface {
	Summarize(ctx context.Context, req models.AgentRequest) (*models.AgentResult, error)
}

// Notifier fans push notifications out to a user's devices. Implemented by
// PushService.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, userID, deviceID string, payload models.NotificationPayload) (*models.DeliveryReport, error)
}

// Orchestrator runs fetch-and-summarize cycles: pull new channel messages
// from Slack, dispatch them to the agent (or fall back to a local summary),
// and commit the resulting assistant turn, cursor advance and any
// auto-generated reminder in one transaction.
type Orchestrator struct {
	sessions    *session.Manager
	store       CycleStore
	users       UserLookup
	slackClient MessageSource
	agent       Summarizer
	push        Notifier
	redis       *RedisService // optional, for multi-instance deployments
	metrics     *Metrics

	mu       sync.Mutex
	inFlight map[string]CycleState // key: userID + ":" + channelID
}

// NewOrchestrator creates a summarization orchestrator
func NewOrchestrator(sessions *session.Manager, store CycleStore, users UserLookup, slackClient MessageSource, agent Summarizer, push Notifier, redis *RedisService, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		store:       store,
		users:       users,
		slackClient: slackClient,
		agent:       agent,
		push:        push,
		redis:       redis,
		metrics:     metrics,
		inFlight:    make(map[string]CycleState),
	}
}

// State returns the current cycle state for a (user, channel) pair
func (o *Orchestrator) State(userID, channelID string) CycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok := o.inFlight[cycleKey(userID, channelID)]; ok {
		return state
	}
	return CycleIdle
}

// RunCycle executes one fetch-and-summarize cycle and returns the assistant
// turn it produced. Only one cycle may run per (user, channel) at a time;
// a concurrent trigger gets ErrCycleInProgress.
func (o *Orchestrator) RunCycle(ctx context.Context, userID, channelID, channelName, userQuery, deviceID string) (*models.ConversationTurn, error) {
	key := cycleKey(userID, channelID)

	o.mu.Lock()
	if state, ok := o.inFlight[key]; ok && state != CycleDone && state != CycleFailed {
		o.mu.Unlock()
		return nil, ErrCycleInProgress
	}
	// Terminal states stay in the map so status polls can observe them;
	// the guard above treats done/failed as free.
	o.inFlight[key] = CycleFetching
	o.mu.Unlock()

	// Cross-instance guard when Redis is available
	lockValue := uuid.NewString()
	if o.redis != nil {
		acquired, err := o.redis.AcquireLock(ctx, "cycle:"+key, lockValue, cycleLockTTL)
		if err != nil {
			log.Printf("⚠️  Cycle lock check failed, proceeding with local guard only: %v", err)
		} else if !acquired {
			o.mu.Lock()
			delete(o.inFlight, key)
			o.mu.Unlock()
			return nil, ErrCycleInProgress
		} else {
			defer o.redis.ReleaseLock(context.WithoutCancel(ctx), "cycle:"+key, lockValue)
		}
	}

	cycleID := uuid.NewString()
	logger := logging.WithCycle(cycleID, channelID, userID)
	started := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCycleStart()
		defer func() {
			o.metrics.RecordCycleLatency(time.Since(started).Seconds())
		}()
	}

	user, err := o.users.Get(ctx, userID)
	if err != nil {
		o.setState(key, CycleFailed)
		return nil, err
	}

	cursor, err := o.store.Cursor(ctx, userID, channelID)
	if err != nil {
		o.setState(key, CycleFailed)
		o.recordError("persistence")
		return nil, err
	}

	logger.Info("fetching channel messages", "after_ts", cursor.LastProcessedTS)
	messages, err := o.slackClient.ChannelMessages(ctx, user.AccessToken, channelID, cursor.LastProcessedTS)
	if err != nil {
		o.setState(key, CycleFailed)
		o.recordError("upstream_fetch")
		o.appendApology(ctx, userID, channelID,
			"Sorry, I couldn't fetch messages from this channel right now. Please try again in a moment.")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	// No new messages: report it as a normal assistant turn. The cursor
	// stays where it is and the agent is never called.
	if len(messages) == 0 {
		st, err := o.sessions.Attach(ctx, userID)
		if err != nil {
			o.setState(key, CycleFailed)
			return nil, err
		}
		turn := st.NewTurn(channelID, models.RoleAssistant,
			fmt.Sprintf("No new messages in #%s since the last fetch.", channelName))
		if err := o.sessions.AppendTurn(ctx, turn); err != nil {
			o.setState(key, CycleFailed)
			o.recordError("persistence")
			return nil, err
		}
		o.setState(key, CycleDone)
		logger.Info("cycle complete", "messages", 0)
		return &turn, nil
	}

	o.setState(key, CycleDispatching)

	if userQuery == "" {
		userQuery = DefaultUserQuery
	}

	result, err := o.agent.Summarize(ctx, models.AgentRequest{
		UserID:      userID,
		TeamID:      user.SlackTeamID,
		ChannelID:   channelID,
		ChannelName: channelName,
		Messages:    formatMessageBatch(messages),
		UserQuery:   userQuery,
		DeviceID:    deviceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAgentUnreachable):
			// The cycle still completes: messages were fetched, so we
			// summarize locally and advance the cursor.
			logger.Warn("agent unreachable, using local summary", "error", err)
			o.recordError("agent_unreachable")
			result = &models.AgentResult{Response: fallbackSummary(channelName, messages)}
		case errors.Is(err, ErrAgentRejected):
			// Surfaced to the user as a chat turn; the cursor stays put so
			// the same messages are retried on the next trigger.
			logger.Warn("agent rejected the dispatch", "error", err)
			o.setState(key, CycleFailed)
			o.recordError("agent_rejected")
			turn := o.appendApology(ctx, userID, channelID,
				"The summarization service rejected the request. Your messages are safe; please try again.")
			if turn == nil {
				return nil, err
			}
			return turn, nil
		default:
			o.setState(key, CycleFailed)
			o.recordError("agent")
			return nil, err
		}
	}

	st, err := o.sessions.Attach(ctx, userID)
	if err != nil {
		o.setState(key, CycleFailed)
		return nil, err
	}

	turn := st.NewTurn(channelID, models.RoleAssistant, result.Response)
	turn.SourceMessages = messages

	cursor.ChannelName = channelName
	cursor.LastProcessedTS = messages[len(messages)-1].TS

	var reminder *models.Reminder
	if result.Reminder != nil {
		reminder = &models.Reminder{
			ID:          uuid.NewString(),
			UserID:      userID,
			Title:       result.Reminder.Title,
			Description: result.Reminder.Description,
			ChannelID:   channelID,
			ChannelName: channelName,
			DueDate:     result.Reminder.DueDate,
			DueTime:     result.Reminder.DueTime,
			Origin:      models.ReminderOriginAuto,
			CreatedAt:   time.Now().UTC(),
		}
	}

	// Turn, cursor and reminder land together or not at all
	if err := o.store.CommitCycle(ctx, turn, cursor, reminder); err != nil {
		o.setState(key, CycleFailed)
		o.recordError("persistence")
		o.appendApology(ctx, userID, channelID,
			"Something went wrong saving the summary. Please try fetching again.")
		return nil, err
	}

	if err := o.sessions.ApplyCommitted(ctx, turn, reminder); err != nil {
		logger.Warn("failed to apply committed cycle to session", "error", err)
	}

	if reminder != nil && o.metrics != nil {
		o.metrics.RecordReminderCreated(string(models.ReminderOriginAuto))
	}

	if result.ShouldNotify && o.push != nil && o.push.Enabled() {
		o.notify(ctx, userID, deviceID, channelName, result, logger)
	}

	o.setState(key, CycleDone)
	logger.Info("cycle complete", "messages", len(messages), "last_ts", cursor.LastProcessedTS)
	return &turn, nil
}

func (o *Orchestrator) setState(key string, state CycleState) {
	o.mu.Lock()
	o.inFlight[key] = state
	o.mu.Unlock()
}

func (o *Orchestrator) recordError(errorType string) {
	if o.metrics != nil {
		o.metrics.RecordCycleError(errorType)
	}
}

// appendApology best-effort appends an assistant turn explaining a failure.
// The cycle is already failing, so persistence errors here are only logged.
func (o *Orchestrator) appendApology(ctx context.Context, userID, channelID, content string) *models.ConversationTurn {
	st, err := o.sessions.Attach(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Could not attach session for apology turn: %v", err)
		return nil
	}
	turn := st.NewTurn(channelID, models.RoleAssistant, content)
	if err := o.sessions.AppendTurn(ctx, turn); err != nil {
		log.Printf("⚠️  Could not persist apology turn: %v", err)
		return nil
	}
	return &turn
}

func (o *Orchestrator) notify(ctx context.Context, userID, deviceID, channelName string, result *models.AgentResult, logger *slog.Logger) {
	title := result.NotificationTitle
	if title == "" {
		title = fmt.Sprintf("New summary for #%s", channelName)
	}
	body := result.NotificationBody
	if body == "" {
		body = truncate(result.Response, fallbackMaxLen)
	}

	report, err := o.push.Notify(ctx, userID, deviceID, models.NotificationPayload{
		Title: title,
		Body:  body,
	})
	if err != nil {
		logger.Warn("push fan-out failed", "error", err)
		return
	}
	logger.Info("push fan-out complete", "delivered", report.Delivered, "targeted", report.Targeted)
}

// formatMessageBatch renders source messages as the "[name]: text" lines
// the agent expects, oldest first
func formatMessageBatch(messages []models.SourceMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		name := m.UserName
		if name == "" {
			name = m.User
		}
		lines = append(lines, fmt.Sprintf("[%s]: %s", name, m.Text))
	}
	return strings.Join(lines, "\n")
}

// fallbackSummary builds a local summary when the agent is unreachable:
// the participant list plus the tail of the conversation.
func fallbackSummary(channelName string, messages []models.SourceMessage) string {
	seen := make(map[string]bool)
	var participants []string
	for _, m := range messages {
		name := m.UserName
		if name == "" {
			name = m.User
		}
		if !seen[name] {
			seen[name] = true
			participants = append(participants, name)
		}
	}

	tail := messages
	if len(tail) > fallbackTailLen {
		tail = tail[len(tail)-fallbackTailLen:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what happened in #%s (%d new messages from %s):\n\n",
		channelName, len(messages), strings.Join(participants, ", "))
	b.WriteString("Recent messages:\n")
	for _, m := range tail {
		name := m.UserName
		if name == "" {
			name = m.User
		}
		fmt.Fprintf(&b, "• [%s]: %s\n", name, truncate(m.Text, fallbackMaxLen))
	}
	b.WriteString("\n(The AI summarization service was unavailable, so this is a basic digest.)")
	return b.String()
}

// truncate shortens s to at most max bytes, never splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

func cycleKey(userID, channelID string) string {
	return userID + ":" + channelID
}
