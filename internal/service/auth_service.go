package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"
	"pos-backoffice/pkg/jwt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Authenticate(ctx context.Context, tokenString string) (*Principal, error)
	Heartbeat(ctx context.Context, p *Principal) error
}

type LoginResponse struct {
	Token        string             `json:"token"`
	User         model.UserResponse `json:"user"`
	Capabilities []string           `json:"capabilities"`
}

type TokenValidationResponse struct {
	User         model.UserResponse `json:"user"`
	Capabilities []string           `json:"capabilities"`
}

type authService struct {
	users  repository.UserRepository
	tokens *jwt.Manager
	events EventPublisher
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *jwt.Manager, events EventPublisher, logger *zap.Logger) AuthService {
	return &authService{users: users, tokens: tokens, events: events, logger: logger}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// a new token version invalidates every token issued before this login
	now := time.Now()
	user.TokenVersion = uuid.New().String()
	user.LastSeenAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("login session update failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, errors.New("failed to update session")
	}

	claims := jwt.Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.FullName,
		Role:         user.Role,
		POSNumber:    user.POSNumber,
		TokenVersion: user.TokenVersion,
	}
	if user.TenantID != nil {
		claims.TenantID = user.TenantID.String()
	}
	token, err := s.tokens.GenerateToken(claims)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return &LoginResponse{
		Token:        token,
		User:         user.ToResponse(),
		Capabilities: user.Capabilities(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.users.UpdateTokenVersion(ctx, userID, uuid.New().String())
}

func (s *authService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return ErrUserNotFound
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return errors.New("new password must be at least 6 characters")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}
	return s.users.UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

// loadUser resolves a token to its still-active user.
func (s *authService) loadUser(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	return user, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	user, err := s.loadUser(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{User: user.ToResponse(), Capabilities: user.Capabilities()}, nil
}

// Authenticate builds the request principal from the stored user, so role
// and tenant changes apply without a new login.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	user, err := s.loadUser(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &Principal{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Email:     user.Email,
		Name:      user.FullName,
		Role:      user.Role,
		POSNumber: user.POSNumber,
	}, nil
}

func (s *authService) Heartbeat(ctx context.Context, p *Principal) error {
	if err := s.users.UpdateLastSeen(ctx, p.UserID); err != nil {
		return err
	}
	if s.events != nil && p.TenantID != nil {
		s.events.Publish(p.TenantID.String(), map[string]interface{}{
			"type":         "user_status_update",
			"user_id":      p.UserID.String(),
			"status":       "online",
			"last_seen_at": time.Now(),
		})
	}
	return nil
}
