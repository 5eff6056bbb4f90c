package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatty-server/internal/interfaces"
	"chatty-server/internal/models"
)

// Broadcaster delivers a newly persisted message to connected clients.
type Broadcaster interface {
	BroadcastNewMessage(msg *models.Message)
}

// MessageService covers the chat message surface.
type MessageService interface {
	// Create persists a message and fans it out to connected clients.
	// Broadcast happens only after a successful write, so every delivered
	// message is also readable via List.
	Create(ctx context.Context, authorID uuid.UUID, content string, priority models.MessagePriority) (*models.Message, error)

	// List returns messages newest-first, optionally filtered.
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)

	// Delete removes a message by ID.
	Delete(ctx context.Context, messageID uuid.UUID) error
}

// Compile-time check to ensure messageServiceImpl implements MessageService
var _ MessageService = (*messageServiceImpl)(nil)

type messageServiceImpl struct {
	messageRepo interfaces.MessageRepository
	userRepo    interfaces.UserRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewMessageService creates a new instance of messageServiceImpl.
func NewMessageService(messageRepo interfaces.MessageRepository, userRepo interfaces.UserRepository, broadcaster Broadcaster, logger *zap.Logger) MessageService {
	return &messageServiceImpl{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		broadcaster: broadcaster,
		logger:      logger.Named("MessageService"),
	}
}

// Create persists a message and broadcasts it.
func (s *messageServiceImpl) Create(ctx context.Context, authorID uuid.UUID, content string, priority models.MessagePriority) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.ErrInvalidInput
	}
	if priority == "" {
		priority = models.PriorityLow
	}
	if !priority.Valid() {
		return nil, models.ErrInvalidInput
	}

	author, err := s.userRepo.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrForbidden
		}
		s.logger.Error("Failed to get message author", zap.Error(err), zap.String("authorID", authorID.String()))
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	if author.IsBanned {
		s.logger.Warn("Banned user attempted to post a message", zap.String("authorID", authorID.String()))
		return nil, models.ErrForbidden
	}

	msg := &models.Message{
		Content:  content,
		Priority: priority,
		AuthorID: authorID,
	}
	if err := s.messageRepo.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to create message", zap.Error(err), zap.String("authorID", authorID.String()))
		return nil, err
	}
	msg.Author = author.Public()

	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMessage(msg)
	}

	s.logger.Info("Message created", zap.String("messageID", msg.ID.String()), zap.String("authorID", authorID.String()))
	return msg, nil
}

// List returns messages newest-first, optionally filtered.
func (s *messageServiceImpl) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, models.ErrInvalidInput
	}

	messages, err := s.messageRepo.ListMessages(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list messages", zap.Error(err))
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Delete removes a message by ID.
func (s *messageServiceImpl) Delete(ctx context.Context, messageID uuid.UUID) error {
	if err := s.messageRepo.DeleteMessage(ctx, messageID); err != nil {
		if !errors.Is(err, models.ErrMessageNotFound) {
			s.logger.Error("Failed to delete message", zap.Error(err), zap.String("messageID", messageID.String()))
		}
		return err
	}
	s.logger.Info("Message deleted", zap.String("messageID", messageID.String()))
	return nil
}
