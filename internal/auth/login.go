package auth

import (
	"context"
	"fmt"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// LoginService exchanges Redmine credentials for a session token.
type LoginService struct {
	redmine *redmine.Client
	manager *Manager
}

// NewLoginService wires the Redmine client used for credential checks.
func NewLoginService(client *redmine.Client, manager *Manager) *LoginService {
	return &LoginService{redmine: client, manager: manager}
}

// Session is a successful login result.
type Session struct {
	Token  string `json:"token"`
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

// Login checks the credentials against Redmine and issues a session token
// wrapping the account's API key. The role comes from the account's
// "User Type" field.
func (s *LoginService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.redmine.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	role := user.CustomFields.Get(redmine.NameUserType)
	token, err := s.manager.Issue(user.ID, user.APIKey, role)
	if err != nil {
		return Session{}, fmt.Errorf("auth: issue session: %w", err)
	}
	return Session{Token: token, UserID: user.ID, Role: role, Name: user.FullName()}, nil
}
