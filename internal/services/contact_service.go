package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/logger"
	"github.com/canopyhq/canopy/pkg/mail"
	"go.uber.org/zap"
)

// ContactInput carries a public contact form submission.
type ContactInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject"`
	Body    string `json:"body" validate:"required"`
}

// ContactService stores contact form submissions and notifies operators by
// email when a mailer is configured. Notification failures never fail the
// submission.
type ContactService struct {
	db     *gorm.DB
	mailer mail.Mailer
	notify string
	log    *zap.Logger
}

// NewContactService wires contact intake. The mailer and notify address may be
// empty, in which case submissions are stored without notification.
func NewContactService(db *gorm.DB, mailer mail.Mailer, notifyAddress string) (*ContactService, error) {
	if db == nil {
		return nil, errors.New("contact service: db is required")
	}
	return &ContactService{
		db:     db,
		mailer: mailer,
		notify: strings.TrimSpace(notifyAddress),
		log:    logger.WithModule("services.contact"),
	}, nil
}

// Submit stores a contact message and fires a best-effort notification.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*models.ContactMessage, error) {
	message := &models.ContactMessage{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Subject: strings.TrimSpace(input.Subject),
		Body:    input.Body,
	}

	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("contact service: create: %w", err)
	}

	s.sendNotification(ctx, message)
	return message, nil
}

// List returns stored messages, optionally restricted to unread ones.
func (s *ContactService) List(ctx context.Context, unreadOnly bool) ([]models.ContactMessage, error) {
	query := s.db.WithContext(ctx)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var messages []models.ContactMessage
	if err := query.Order("created_at desc").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("contact service: list: %w", err)
	}
	return messages, nil
}

// Get fetches one message.
func (s *ContactService) Get(ctx context.Context, id string) (*models.ContactMessage, error) {
	var message models.ContactMessage
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("contact message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("contact service: get: %w", err)
	}
	return &message, nil
}

// MarkRead flags a message as handled.
func (s *ContactService) MarkRead(ctx context.Context, id string) (*models.ContactMessage, error) {
	message, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !message.IsRead {
		if err := s.db.WithContext(ctx).Model(message).Update("is_read", true).Error; err != nil {
			return nil, fmt.Errorf("contact service: mark read: %w", err)
		}
		message.IsRead = true
	}
	return message, nil
}

// Delete removes a message.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	message, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(message).Error; err != nil {
		return fmt.Errorf("contact service: delete: %w", err)
	}
	return nil
}

func (s *ContactService) sendNotification(ctx context.Context, message *models.ContactMessage) {
	if s.mailer == nil || s.notify == "" {
		return
	}

	subject := message.Subject
	if subject == "" {
		subject = "New contact form submission"
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{s.notify},
		Subject: fmt.Sprintf("[contact] %s", subject),
		Body: fmt.Sprintf("From: %s <%s>\n\n%s",
			message.Name, message.Email, message.Body),
	})
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.log.Warn("contact notification failed",
			zap.String("message_id", message.ID), zap.Error(err))
	}
}
