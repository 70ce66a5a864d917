// Package auth contains the business logic for registration, login and
// token validation.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/osoriolabs/lawdesk/internal/lib/jwt"
	"github.com/osoriolabs/lawdesk/internal/lib/password"
	"github.com/osoriolabs/lawdesk/internal/models"
)

// ErrInvalidCredentials is returned on a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository is the persistence contract the service needs.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthService handles registration, login and JWT validation.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

func New(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register creates a user with a hashed password, default role "user" and a
// 30-day trial.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	trialExpiresAt := time.Now().UTC().AddDate(0, 0, 30)
	user := models.User{
		Email:              email,
		Username:           username,
		PasswordHash:       hashed,
		Role:               "user",
		SubscriptionStatus: models.SubscriptionStatusTrial,
		TrialExpiresAt:     &trialExpiresAt,
	}
	return s.users.RegisterUser(ctx, user)
}

// Login checks the password and issues a JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken parses the JWT and resolves it to a principal.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.Principal, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &models.Principal{
		UID:      claims.UserUID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
