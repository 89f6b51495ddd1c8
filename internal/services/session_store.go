package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slacksum/internal/database"
	"slacksum/internal/models"
	"slacksum/internal/session"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionStore persists session state to MongoDB. It implements
// session.Persister so the in-memory session layer can write through it.
type SessionStore struct {
	db        *database.MongoDB
	turns     *mongo.Collection
	reminders *mongo.Collection
	appState  *mongo.Collection
	cursors   *mongo.Collection
}

// NewSessionStore creates a session store backed by MongoDB
func NewSessionStore(db *database.MongoDB) *SessionStore {
	return &SessionStore{
		db:        db,
		turns:     db.Collection(database.CollectionConversationTurns),
		reminders: db.Collection(database.CollectionReminders),
		appState:  db.Collection(database.CollectionAppState),
		cursors:   db.Collection(database.CollectionChannelCursors),
	}
}

// Load hydrates a full session snapshot for a user
func (s *SessionStore) Load(ctx context.Context, userID string) (*session.Snapshot, error) {
	snap := &session.Snapshot{
		Turns: make(map[string][]models.ConversationTurn),
	}

	// Conversation turns, grouped by channel in creation order
	cursor, err := s.turns.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return snap, fmt.Errorf("failed to load conversation turns: %w", err)
	}
	var turns []models.ConversationTurn
	if err := cursor.All(ctx, &turns); err != nil {
		return snap, fmt.Errorf("failed to decode conversation turns: %w", err)
	}
	for _, turn := range turns {
		snap.Turns[turn.ChannelID] = append(snap.Turns[turn.ChannelID], turn)
	}

	// Reminders in creation order
	cursor, err = s.reminders.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return snap, fmt.Errorf("failed to load reminders: %w", err)
	}
	if err := cursor.All(ctx, &snap.Reminders); err != nil {
		return snap, fmt.Errorf("failed to decode reminders: %w", err)
	}

	// Application state (selected channel, device)
	err = s.appState.FindOne(ctx, bson.M{"userId": userID}).Decode(&snap.App)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return snap, fmt.Errorf("failed to load app state: %w", err)
	}
	snap.App.UserID = userID

	return snap, nil
}

// SaveTurn appends a conversation turn
func (s *SessionStore) SaveTurn(ctx context.Context, turn models.ConversationTurn) error {
	if _, err := s.turns.InsertOne(ctx, turn); err != nil {
		return fmt.Errorf("failed to save conversation turn: %w", err)
	}
	return nil
}

// DeleteChannelTurns removes all turns for one (user, channel) pair
func (s *SessionStore) DeleteChannelTurns(ctx context.Context, userID, channelID string) error {
	if _, err := s.turns.DeleteMany(ctx, bson.M{"userId": userID, "channelId": channelID}); err != nil {
		return fmt.Errorf("failed to delete conversation turns: %w", err)
	}
	return nil
}

// SaveReminder upserts a reminder by its ID
func (s *SessionStore) SaveReminder(ctx context.Context, reminder models.Reminder) error {
	_, err := s.reminders.ReplaceOne(ctx,
		bson.M{"reminderId": reminder.ID, "userId": reminder.UserID},
		reminder,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save reminder: %w", err)
	}
	return nil
}

// DeleteReminder removes a reminder
func (s *SessionStore) DeleteReminder(ctx context.Context, userID, reminderID string) error {
	result, err := s.reminders.DeleteOne(ctx, bson.M{"reminderId": reminderID, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if result.DeletedCount == 0 {
		return session.ErrReminderNotFound
	}
	return nil
}

// SaveApp upserts the per-user application state
func (s *SessionStore) SaveApp(ctx context.Context, app models.AppState) error {
	app.UpdatedAt = time.Now().UTC()
	_, err := s.appState.ReplaceOne(ctx,
		bson.M{"userId": app.UserID},
		app,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save app state: %w", err)
	}
	return nil
}

// Cursor returns the channel cursor for a (user, channel) pair.
// A missing cursor means the channel has never been processed; the zero
// value with an empty LastProcessedTS is returned.
func (s *SessionStore) Cursor(ctx context.Context, userID, channelID string) (models.ChannelCursor, error) {
	var c models.ChannelCursor
	err := s.cursors.FindOne(ctx, bson.M{"userId": userID, "channelId": channelID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChannelCursor{UserID: userID, ChannelID: channelID}, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to load channel cursor: %w", err)
	}
	return c, nil
}

// CommitCycle atomically persists the results of a summarization cycle:
// the assistant turn, the advanced channel cursor, and (optionally) an
// auto-generated reminder. Either all three land or none do.
func (s *SessionStore) CommitCycle(ctx context.Context, turn models.ConversationTurn, cursor models.ChannelCursor, reminder *models.Reminder) error {
	return s.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.turns.InsertOne(sessCtx, turn); err != nil {
			return fmt.Errorf("failed to save cycle turn: %w", err)
		}

		cursor.UpdatedAt = time.Now().UTC()
		_, err := s.cursors.ReplaceOne(sessCtx,
			bson.M{"userId": cursor.UserID, "channelId": cursor.ChannelID},
			cursor,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to advance channel cursor: %w", err)
		}

		if reminder != nil {
			if _, err := s.reminders.InsertOne(sessCtx, *reminder); err != nil {
				return fmt.Errorf("failed to save auto reminder: %w", err)
			}
		}

		return nil
	})
}
