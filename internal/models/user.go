package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a Slack workspace identity stored after OAuth.
// The access token is the user token obtained from oauth.v2.access and is
// never serialized to the frontend.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SlackUserID string             `bson:"slackUserId" json:"id"`
	SlackTeamID string             `bson:"slackTeamId" json:"teamId"`
	TeamName    string             `bson:"teamName" json:"teamName"`
	UserName    string             `bson:"userName" json:"name"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Avatar      string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	AccessToken string             `bson:"accessToken" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserProfile is the safe subset of User returned to the frontend
type UserProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	TeamName string `json:"teamName,omitempty"`
}

// Profile converts a User to its frontend-safe representation
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.SlackUserID,
		Name:     u.UserName,
		Email:    u.Email,
		Avatar:   u.Avatar,
		TeamName: u.TeamName,
	}
}

// AuthStatusResponse is the response for GET /api/auth/me
type AuthStatusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *UserProfile `json:"user,omitempty"`
}
