package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatty-server/internal/config"
	"chatty-server/internal/interfaces"
	"chatty-server/internal/models"
)

// UserService covers the administrative user surface and profile updates.
type UserService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// CreateUser creates a user with an explicit role (admin provisioning).
	CreateUser(ctx context.Context, username, password, avatar, role string) (*models.User, error)

	// UpdateUser applies the non-nil fields and returns the updated user.
	UpdateUser(ctx context.Context, userID uuid.UUID, password, avatar, role *string) (*models.User, error)

	// SetBanStatus flips the ban flag. Banning takes effect on the next
	// session validation, not just the next login.
	SetBanStatus(ctx context.Context, userID uuid.UUID, banned bool) (*models.User, error)

	// GetUserStats aggregates the user's message activity.
	GetUserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
}

// Compile-time check to ensure userServiceImpl implements UserService
var _ UserService = (*userServiceImpl)(nil)

type userServiceImpl struct {
	userRepo    interfaces.UserRepository
	messageRepo interfaces.MessageRepository
	cfg         *config.Config
	logger      *zap.Logger
}

// NewUserService creates a new instance of userServiceImpl.
func NewUserService(userRepo interfaces.UserRepository, messageRepo interfaces.MessageRepository, cfg *config.Config, logger *zap.Logger) UserService {
	return &userServiceImpl{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		cfg:         cfg,
		logger:      logger.Named("UserService"),
	}
}

func (s *userServiceImpl) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			s.logger.Error("Failed to get user", zap.Error(err), zap.String("userID", userID.String()))
		}
		return nil, err
	}
	return user, nil
}

// CreateUser creates a user with an explicit role.
func (s *userServiceImpl) CreateUser(ctx context.Context, username, password, avatar, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrInvalidInput
	}
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, models.ErrInvalidInput
	}

	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during user creation", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if avatar == "" {
		avatar = fmt.Sprintf(defaultAvatarURL, url.QueryEscape(username))
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
		Avatar:       avatar,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, models.ErrUserAlreadyExists) {
			s.logger.Error("Failed to create user via repository", zap.Error(err), zap.String("username", username))
		}
		return nil, err
	}

	s.logger.Info("User created", zap.String("userID", user.ID.String()), zap.String("username", user.Username), zap.String("role", user.Role))
	return user, nil
}

// UpdateUser applies the non-nil fields to the user.
func (s *userServiceImpl) UpdateUser(ctx context.Context, userID uuid.UUID, password, avatar, role *string) (*models.User, error) {
	if role != nil && !models.ValidRole(*role) {
		return nil, models.ErrInvalidInput
	}
	if password != nil && *password == "" {
		return nil, models.ErrInvalidInput
	}

	if password != nil {
		hashedPassword, err := hashPassword(*password, s.cfg.PasswordPepper)
		if err != nil {
			s.logger.Error("Failed to hash password during user update", zap.Error(err))
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.userRepo.UpdatePasswordHash(ctx, userID, hashedPassword); err != nil {
			return nil, err
		}
	}

	if avatar != nil || role != nil {
		if err := s.userRepo.UpdateUserFields(ctx, userID, avatar, role, nil); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User updated", zap.String("userID", userID.String()))
	return user, nil
}

// SetBanStatus flips the ban flag on the user.
func (s *userServiceImpl) SetBanStatus(ctx context.Context, userID uuid.UUID, banned bool) (*models.User, error) {
	if err := s.userRepo.UpdateUserFields(ctx, userID, nil, nil, &banned); err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			s.logger.Error("Failed to update ban status", zap.Error(err), zap.String("userID", userID.String()))
		}
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User ban status changed", zap.String("userID", userID.String()), zap.Bool("banned", banned))
	return user, nil
}

// GetUserStats aggregates the user's message activity.
func (s *userServiceImpl) GetUserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.messageRepo.GetUserStats(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user stats", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	stats.Username = user.Username
	return stats, nil
}
