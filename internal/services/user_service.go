package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"slacksum/internal/database"
	"slacksum/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserService manages user records created through Slack OAuth
type UserService struct {
	collection *mongo.Collection
}

// NewUserService creates a new user service
func NewUserService(db *database.MongoDB) *UserService {
	return &UserService{
		collection: db.Collection(database.CollectionUsers),
	}
}

// Upsert creates or refreshes a user record after a successful OAuth
// exchange. A returning user gets their access token and team info updated.
func (s *UserService) Upsert(ctx context.Context, slackUserID, teamID, teamName, accessToken string) (*models.User, error) {
	now := time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"slackTeamId": teamID,
			"teamName":    teamName,
			"accessToken": accessToken,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"slackUserId": slackUserID,
			"createdAt":   now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"slackUserId": slackUserID}, update, opts).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	log.Printf("✅ User authenticated: %s (team %s)", slackUserID, teamID)
	return &user, nil
}

// Get returns a user by Slack user ID
func (s *UserService) Get(ctx context.Context, slackUserID string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"slackUserId": slackUserID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// AccessToken returns the Slack access token for a user
func (s *UserService) AccessToken(ctx context.Context, slackUserID string) (string, error) {
	user, err := s.Get(ctx, slackUserID)
	if err != nil {
		return "", err
	}
	return user.AccessToken, nil
}
