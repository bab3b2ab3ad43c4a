package service

import (
	"context"

	"catastro-backend/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationService writes notification records for transition events.
// Engines call Notify after their transaction commits; a failure here is
// logged and never propagated, so a notification problem can never roll
// back or fail the transition that caused it.
type NotificationService struct {
	store  NotificationStore
	logger *logrus.Logger
}

// NotificationServiceOption is a functional option for NotificationService
type NotificationServiceOption func(*NotificationService)

// NotifyWithStore sets the notification store
func NotifyWithStore(store NotificationStore) NotificationServiceOption {
	return func(s *NotificationService) {
		s.store = store
	}
}

// NotifyWithLogger sets the logger
func NotifyWithLogger(logger *logrus.Logger) NotificationServiceOption {
	return func(s *NotificationService) {
		s.logger = logger
	}
}

// NewNotificationService creates a new notification service
func NewNotificationService(opts ...NotificationServiceOption) *NotificationService {
	s := &NotificationService{logger: logrus.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify writes one notification per recipient, best effort
func (s *NotificationService) Notify(ctx context.Context, recipients []uuid.UUID, title, message, referenceType string, referenceID uuid.UUID) {
	if s == nil || s.store == nil {
		return
	}

	seen := make(map[uuid.UUID]bool)
	for _, recipient := range recipients {
		if recipient == uuid.Nil || seen[recipient] {
			continue
		}
		seen[recipient] = true

		refType := referenceType
		refID := referenceID
		notification := &models.Notification{
			RecipientID:   recipient,
			Title:         title,
			Message:       message,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}
		if err := s.store.Create(ctx, notification); err != nil {
			s.logger.WithFields(logrus.Fields{
				"recipient": recipient,
				"reference": referenceID,
			}).WithError(err).Warn("failed to write notification")
		}
	}
}

// List retrieves the newest notifications for a recipient
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	notifications, err := s.store.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return notifications, nil
}

// CountUnread returns the recipient's unread notification count
func (s *NotificationService) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	count, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, translateStoreError(err)
	}
	return count, nil
}

// MarkRead flags one of the recipient's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	if err := s.store.MarkRead(ctx, id, recipientID); err != nil {
		return translateStoreError(err)
	}
	return nil
}
