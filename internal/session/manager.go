package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"slacksum/internal/models"
)

// ErrReminderNotFound is returned when a reminder id does not exist in the
// user's ledger
var ErrReminderNotFound = errors.New("reminder not found")

// Snapshot is the durable subset of a user's state: conversation turns keyed
// by channel, the reminder ledger, and the application state document.
type Snapshot struct {
	Turns     map[string][]models.ConversationTurn
	Reminders []models.Reminder
	App       models.AppState
}

// Persister mirrors state mutations to durable storage. Each call is a
// single-document write; multi-document cycle commits go through the
// orchestrator's store instead.
type Persister interface {
	Load(ctx context.Context, userID string) (*Snapshot, error)
	SaveTurn(ctx context.Context, turn models.ConversationTurn) error
	DeleteChannelTurns(ctx context.Context, userID, channelID string) error
	SaveReminder(ctx context.Context, reminder models.Reminder) error
	DeleteReminder(ctx context.Context, userID, reminderID string) error
	SaveApp(ctx context.Context, app models.AppState) error
}

// Manager owns the per-user session states. A user's state is rehydrated
// from the Persister on first attach and every mutation is written through
// before it becomes visible in memory, so a crashed or reloaded session
// always comes back consistent.
type Manager struct {
	mu        sync.Mutex
	persister Persister
	sessions  map[string]*State
}

// NewManager creates a session manager backed by the given persister
func NewManager(persister Persister) *Manager {
	return &Manager{
		persister: persister,
		sessions:  make(map[string]*State),
	}
}

// Attach returns the user's session state, rehydrating it from durable
// storage on first use
func (m *Manager) Attach(ctx context.Context, userID string) (*State, error) {
	m.mu.Lock()
	if st, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return st, nil
	}
	m.mu.Unlock()

	snap, err := m.persister.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to rehydrate session for %s: %w", userID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have attached while we were loading
	if st, ok := m.sessions[userID]; ok {
		return st, nil
	}
	st := NewState(userID)
	st.hydrate(snap)
	m.sessions[userID] = st
	return st, nil
}

// Detach drops a user's in-memory state (used on logout); durable storage is
// untouched
func (m *Manager) Detach(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// EnsureWelcomeTurn appends the fixed welcome system turn iff the channel's
// log is empty. Idempotent: calling it on every channel open never duplicates
// the welcome turn. Returns the appended turn, or nil when the log already
// had content.
func (m *Manager) EnsureWelcomeTurn(ctx context.Context, userID, channelID, channelName string) (*models.ConversationTurn, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return nil, err
	}

	turn := st.welcomeTurn(channelID, channelName)
	if turn == nil {
		return nil, nil
	}
	if err := m.persister.SaveTurn(ctx, *turn); err != nil {
		return nil, fmt.Errorf("failed to persist welcome turn: %w", err)
	}
	st.appendTurn(*turn)
	return turn, nil
}

// AppendTurn persists and appends a turn to its channel's log
func (m *Manager) AppendTurn(ctx context.Context, turn models.ConversationTurn) error {
	st, err := m.Attach(ctx, turn.UserID)
	if err != nil {
		return err
	}
	if err := m.persister.SaveTurn(ctx, turn); err != nil {
		return fmt.Errorf("failed to persist turn: %w", err)
	}
	st.appendTurn(turn)
	return nil
}

// Turns returns one channel's conversation log in creation order
func (m *Manager) Turns(ctx context.Context, userID, channelID string) ([]models.ConversationTurn, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.Turns(channelID), nil
}

// ClearChannel empties exactly one channel's conversation log; other
// channels are unaffected
func (m *Manager) ClearChannel(ctx context.Context, userID, channelID string) error {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.persister.DeleteChannelTurns(ctx, userID, channelID); err != nil {
		return fmt.Errorf("failed to clear channel turns: %w", err)
	}
	st.clearChannel(channelID)
	return nil
}

// ApplyCommitted makes an already-persisted cycle result (assistant turn and
// optional reminder) visible in the in-memory state. The orchestrator calls
// this after its transactional commit succeeds.
func (m *Manager) ApplyCommitted(ctx context.Context, turn models.ConversationTurn, reminder *models.Reminder) error {
	st, err := m.Attach(ctx, turn.UserID)
	if err != nil {
		return err
	}
	st.appendTurn(turn)
	if reminder != nil {
		st.addReminder(*reminder)
	}
	return nil
}

// CreateReminder adds a manual reminder to the user's ledger
func (m *Manager) CreateReminder(ctx context.Context, userID string, req *models.CreateReminderRequest) (*models.Reminder, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return nil, err
	}

	reminder := models.Reminder{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		ChannelID:   req.ChannelID,
		ChannelName: req.ChannelName,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		Origin:      models.ReminderOriginManual,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.persister.SaveReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to persist reminder: %w", err)
	}
	st.addReminder(reminder)
	return &reminder, nil
}

// UpdateReminder applies a partial update to one reminder
func (m *Manager) UpdateReminder(ctx context.Context, userID, reminderID string, req *models.UpdateReminderRequest) (*models.Reminder, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return nil, err
	}

	reminder, ok := st.reminder(reminderID)
	if !ok {
		return nil, ErrReminderNotFound
	}
	if req.Title != nil {
		reminder.Title = *req.Title
	}
	if req.Description != nil {
		reminder.Description = *req.Description
	}
	if req.DueDate != nil {
		reminder.DueDate = *req.DueDate
	}
	if req.DueTime != nil {
		reminder.DueTime = *req.DueTime
	}
	if req.IsCompleted != nil {
		reminder.IsCompleted = *req.IsCompleted
	}
	if req.IsRead != nil {
		reminder.IsRead = *req.IsRead
	}

	if err := m.persister.SaveReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to persist reminder update: %w", err)
	}
	st.applyReminder(reminder)
	return &reminder, nil
}

// RemoveReminder deletes a reminder from the ledger
func (m *Manager) RemoveReminder(ctx context.Context, userID, reminderID string) error {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := st.reminder(reminderID); !ok {
		return ErrReminderNotFound
	}
	if err := m.persister.DeleteReminder(ctx, userID, reminderID); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	st.removeReminder(reminderID)
	return nil
}

// MarkReminderRead sets the read flag on one reminder
func (m *Manager) MarkReminderRead(ctx context.Context, userID, reminderID string) (*models.Reminder, error) {
	read := true
	return m.UpdateReminder(ctx, userID, reminderID, &models.UpdateReminderRequest{IsRead: &read})
}

// MarkReminderComplete sets the completion flag on one reminder, which
// removes it from both active partitions
func (m *Manager) MarkReminderComplete(ctx context.Context, userID, reminderID string) (*models.Reminder, error) {
	completed := true
	return m.UpdateReminder(ctx, userID, reminderID, &models.UpdateReminderRequest{IsCompleted: &completed})
}

// MarkAllActiveRead marks every active-and-unread reminder as read — the
// close-panel batch. Completed reminders' read flags are untouched.
// Implemented as idempotent per-item writes; returns how many reminders
// changed.
func (m *Manager) MarkAllActiveRead(ctx context.Context, userID string) (int, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, r := range st.activeUnread() {
		r.IsRead = true
		if err := m.persister.SaveReminder(ctx, r); err != nil {
			return marked, fmt.Errorf("failed to persist reminder read flag: %w", err)
		}
		st.applyReminder(r)
		marked++
	}
	return marked, nil
}

// Partitions groups the user's reminders for the notifications panel
func (m *Manager) Partitions(ctx context.Context, userID string) (models.ReminderPartitions, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return models.ReminderPartitions{}, err
	}
	return st.Partitions(), nil
}

// SelectChannel moves the user's single-select channel pointer. An empty
// channel id deselects; nothing is discarded either way.
func (m *Manager) SelectChannel(ctx context.Context, userID, channelID, channelName string) (models.AppState, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return models.AppState{}, err
	}

	app := st.App()
	app.SelectedChannelID = channelID
	app.SelectedChannelName = channelName
	app.UpdatedAt = time.Now().UTC()

	if err := m.persister.SaveApp(ctx, app); err != nil {
		return models.AppState{}, fmt.Errorf("failed to persist channel selection: %w", err)
	}
	st.applyApp(app)
	return app, nil
}

// SetDevice records the push device id this user's browser registered
func (m *Manager) SetDevice(ctx context.Context, userID, deviceID string) (models.AppState, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return models.AppState{}, err
	}

	app := st.App()
	app.DeviceID = deviceID
	app.UpdatedAt = time.Now().UTC()

	if err := m.persister.SaveApp(ctx, app); err != nil {
		return models.AppState{}, fmt.Errorf("failed to persist device id: %w", err)
	}
	st.applyApp(app)
	return app, nil
}

// App returns the user's persisted application state
func (m *Manager) App(ctx context.Context, userID string) (models.AppState, error) {
	st, err := m.Attach(ctx, userID)
	if err != nil {
		return models.AppState{}, err
	}
	return st.App(), nil
}
