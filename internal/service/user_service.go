package service

import (
	"context"
	"errors"
	"strings"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"
	"pos-backoffice/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmailExists = errors.New("email already exists")
	ErrInvalidRole = errors.New("role must be admin or pos")
)

type UserService interface {
	CreateUser(ctx context.Context, caller *Principal, req *CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, caller *Principal, userID uuid.UUID, req *UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, caller *Principal, userID uuid.UUID) error
	ListUsers(ctx context.Context, tenantID uuid.UUID) ([]model.UserResponse, error)
	EnsureSuperadmin(ctx context.Context, email, password string) (*model.User, bool, error)
}

type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6"`
	FullName  string  `json:"full_name" validate:"required"`
	Role      string  `json:"role" validate:"required,oneof=admin pos"`
	POSNumber *int    `json:"pos_number" validate:"omitempty,min=1"`
	TenantID  *string `json:"tenant_id,omitempty" validate:"omitempty,uuid"` // superadmin only
}

type UpdateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FullName  string  `json:"full_name" validate:"required"`
	Role      string  `json:"role" validate:"required,oneof=admin pos"`
	POSNumber *int    `json:"pos_number" validate:"omitempty,min=1"`
	IsActive  *bool   `json:"is_active"`
}

type userService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

// targetTenant is the caller's tenant unless the caller may manage every tenant.
func targetTenant(caller *Principal, requested *string) (*uuid.UUID, error) {
	if requested != nil && *requested != "" && caller.Can(model.CapTenantManage) {
		id, err := uuid.Parse(*requested)
		if err != nil {
			return nil, errors.New("invalid tenant_id")
		}
		return &id, nil
	}
	if caller.TenantID == nil {
		return nil, errors.New("tenant_id is required")
	}
	id := *caller.TenantID
	return &id, nil
}

func (s *userService) CreateUser(ctx context.Context, caller *Principal, req *CreateUserRequest) (*model.User, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	tenantID, err := targetTenant(caller, req.TenantID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, _ := s.users.FindByEmail(ctx, email); existing != nil {
		return nil, ErrEmailExists
	}

	user := &model.User{
		TenantID:  tenantID,
		Email:     email,
		FullName:  strings.TrimSpace(req.FullName),
		Role:      req.Role,
		POSNumber: req.POSNumber,
		IsActive:  true,
	}
	user.CreatedBy = caller.Actor()
	user.UpdatedBy = caller.Actor()
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// scopedUser loads a user the caller is allowed to manage. Users of another
// tenant are reported as not found.
func (s *userService) scopedUser(ctx context.Context, caller *Principal, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if caller.Can(model.CapBypassGate) {
		return user, nil
	}
	if user.TenantID == nil || caller.TenantID == nil || *user.TenantID != *caller.TenantID {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, caller *Principal, userID uuid.UUID, req *UpdateUserRequest) (*model.User, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	user, err := s.scopedUser(ctx, caller, userID)
	if err != nil {
		return nil, err
	}
	if user.IsSuperadmin() {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != user.Email {
		if existing, _ := s.users.FindByEmail(ctx, email); existing != nil {
			return nil, ErrEmailExists
		}
	}

	user.Email = email
	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	user.POSNumber = req.POSNumber
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = caller.Actor()

	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, errors.New("failed to hash password")
		}
		// force re-login with the new password
		user.TokenVersion = uuid.New().String()
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, caller *Principal, userID uuid.UUID) error {
	if userID == caller.UserID {
		return errors.New("cannot delete your own account")
	}
	if _, err := s.scopedUser(ctx, caller, userID); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID, caller.Actor())
}

func (s *userService) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]model.UserResponse, error) {
	users, err := s.users.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

// EnsureSuperadmin creates the platform superadmin if no user holds email.
// The bool result reports whether a user was created.
func (s *userService) EnsureSuperadmin(ctx context.Context, email, password string) (*model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, false, errors.New("superadmin email and password are required")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	user := &model.User{
		Email:    email,
		FullName: "Superadmin",
		Role:     model.RoleSuperadmin,
		IsActive: true,
	}
	user.CreatedBy = "system"
	user.UpdatedBy = "system"
	if err := user.SetPassword(password); err != nil {
		return nil, false, errors.New("failed to hash password")
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	s.logger.Info("superadmin created", zap.String("email", email))
	return user, true, nil
}
