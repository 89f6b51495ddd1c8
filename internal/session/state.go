package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"slacksum/internal/models"
)

// welcomeTemplate is the fixed system turn appended when a channel's
// conversation log is first opened.
const welcomeTemplate = `Connected to #%s. I'm your AI assistant. Click "Fetch & Summarize" to get the latest messages from this channel, and I'll provide you with a summary and highlight any important items.`

// State is one user's in-memory application state: the per-channel
// conversation logs, the reminder ledger, the selected channel, and the push
// device id. Callers hold it by reference through the Manager. All methods
// are safe for concurrent use.
//
// State never touches durable storage itself; the Manager mirrors every
// mutation through a Persister and rehydrates a State from a Snapshot when
// the user's session is attached.
type State struct {
	mu        sync.RWMutex
	userID    string
	turns     map[string][]models.ConversationTurn
	reminders []models.Reminder
	app       models.AppState
}

// NewState creates an empty state for a user
func NewState(userID string) *State {
	return &State{
		userID: userID,
		turns:  make(map[string][]models.ConversationTurn),
		app:    models.AppState{UserID: userID},
	}
}

// hydrate replaces the state's contents from a persisted snapshot
func (s *State) hydrate(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = make(map[string][]models.ConversationTurn, len(snap.Turns))
	for channelID, turns := range snap.Turns {
		s.turns[channelID] = append([]models.ConversationTurn(nil), turns...)
	}
	s.reminders = append([]models.Reminder(nil), snap.Reminders...)
	s.app = snap.App
	s.app.UserID = s.userID
}

// UserID returns the owning user's Slack user id
func (s *State) UserID() string {
	return s.userID
}

// NewTurn builds a turn owned by this user with a fresh id and timestamp
func (s *State) NewTurn(channelID string, role models.TurnRole, content string) models.ConversationTurn {
	return models.ConversationTurn{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		ChannelID: channelID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// welcomeTurn returns the system turn to append for an empty channel, or nil
// when the channel already has turns
func (s *State) welcomeTurn(channelID, channelName string) *models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.turns[channelID]) > 0 {
		return nil
	}
	turn := s.NewTurn(channelID, models.RoleSystem, fmt.Sprintf(welcomeTemplate, channelName))
	return &turn
}

// appendTurn appends a turn to its channel's log. Append-only: existing
// turns are never mutated or removed.
func (s *State) appendTurn(turn models.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.ChannelID] = append(s.turns[turn.ChannelID], turn)
}

// Turns returns a copy of one channel's log in creation order. Unknown
// channels yield an empty slice.
func (s *State) Turns(channelID string) []models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ConversationTurn{}, s.turns[channelID]...)
}

// clearChannel empties exactly one channel's log
func (s *State) clearChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, channelID)
}

// addReminder appends a reminder to the ledger
func (s *State) addReminder(r models.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, r)
}

// reminder returns a copy of the reminder with the given id
func (s *State) reminder(id string) (models.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reminders {
		if r.ID == id {
			return r, true
		}
	}
	return models.Reminder{}, false
}

// applyReminder replaces the stored reminder with the same id
func (s *State) applyReminder(updated models.Reminder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reminders {
		if r.ID == updated.ID {
			s.reminders[i] = updated
			return true
		}
	}
	return false
}

// removeReminder deletes a reminder from the ledger
func (s *State) removeReminder(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reminders {
		if r.ID == id {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			return true
		}
	}
	return false
}

// Reminders returns a copy of the full ledger in creation order
func (s *State) Reminders() []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Reminder{}, s.reminders...)
}

// Partitions groups the ledger for the notifications panel
func (s *State) Partitions() models.ReminderPartitions {
	return models.PartitionReminders(s.Reminders())
}

// activeUnread returns copies of reminders that are neither completed nor
// read; these are the ones a panel close marks as read
func (s *State) activeUnread() []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reminder
	for _, r := range s.reminders {
		if !r.IsCompleted && !r.IsRead {
			out = append(out, r)
		}
	}
	return out
}

// App returns a copy of the persisted application state
func (s *State) App() models.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// applyApp replaces the application state
func (s *State) applyApp(app models.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app.UserID = s.userID
	s.app = app
}
