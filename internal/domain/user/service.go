package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loanfriend/internal/pkg/apperrors"
)

type UserService interface {
	Register(ctx context.Context, username, email, password string, profile Profile) (*User, error)

	// Authenticate verifies credentials and that the account has been
	// activated by an admin. Returns the user on success.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	GetUser(ctx context.Context, userID int64) (*User, error)

	ListUsers(ctx context.Context) ([]User, error)

	ApproveUser(ctx context.Context, userID int64) (*User, error)

	SuspendUser(ctx context.Context, userID int64) (*User, error)
}

type userServiceImpl struct {
	repo   Repository
	logger *slog.Logger
}

func NewUserService(r Repository, logger *slog.Logger) UserService {
	return &userServiceImpl{repo: r, logger: logger.With("component", "UserService")}
}

func (s *userServiceImpl) Register(ctx context.Context, username, email, password string, profile Profile) (*User, error) {
	s.logger.InfoContext(ctx, "Registering new user", "username", username)

	if existing, err := s.repo.GetUserByUsername(ctx, username); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrAlreadyExists, username)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.ErrorContext(ctx, "Failed to check username availability", "username", username, "error", err)
		return nil, fmt.Errorf("%w: failed to check username: %v", apperrors.ErrInternalServer, err)
	}

	u, err := NewUser(username, email, password, profile)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrAlreadyExists, username)
		}
		s.logger.ErrorContext(ctx, "Failed to create user", "username", username, "error", err)
		return nil, fmt.Errorf("%w: failed to create user: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "User registered, pending admin approval", "userID", created.ID)
	return created, nil
}

func (s *userServiceImpl) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "Failed to look up user for login", "username", username, "error", err)
		return nil, fmt.Errorf("%w: failed to look up user: %v", apperrors.ErrInternalServer, err)
	}

	if !u.CheckPassword(password) {
		s.logger.WarnContext(ctx, "Login with wrong password", "username", username)
		return nil, apperrors.ErrUnauthorized
	}
	if !u.Active {
		s.logger.WarnContext(ctx, "Login attempt on inactive account", "username", username)
		return nil, fmt.Errorf("%w: account is not active", apperrors.ErrForbidden)
	}
	return u, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID %d not found", apperrors.ErrNotFound, userID)
		}
		s.logger.ErrorContext(ctx, "Failed to get user", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to get user %d: %v", apperrors.ErrInternalServer, userID, err)
	}
	return u, nil
}

func (s *userServiceImpl) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsersByRole(ctx, RoleUser)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list users", "error", err)
		return nil, fmt.Errorf("%w: failed to list users: %v", apperrors.ErrInternalServer, err)
	}
	return users, nil
}

func (s *userServiceImpl) ApproveUser(ctx context.Context, userID int64) (*User, error) {
	s.logger.InfoContext(ctx, "Approving user", "userID", userID)
	return s.setActivation(ctx, userID, true, ProfileApproved)
}

func (s *userServiceImpl) SuspendUser(ctx context.Context, userID int64) (*User, error) {
	s.logger.InfoContext(ctx, "Suspending user", "userID", userID)
	return s.setActivation(ctx, userID, false, ProfileSuspended)
}

func (s *userServiceImpl) setActivation(ctx context.Context, userID int64, active bool, status ProfileStatus) (*User, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUserActivation(ctx, userID, active, status); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update user activation", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to update user %d: %v", apperrors.ErrInternalServer, userID, err)
	}

	u.Active = active
	u.Profile.Status = status
	return u, nil
}
