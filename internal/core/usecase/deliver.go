package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

// NotificationUseCase renders published intents into inbox entries and serves the inbox.
type NotificationUseCase struct {
	store         ports.NotificationStore
	users         ports.UserDirectory
	catalog       ports.MessageCatalog
	defaultLocale string
	logger        *slog.Logger
	now           func() time.Time
}

func NewNotificationUseCase(
	store ports.NotificationStore,
	users ports.UserDirectory,
	catalog ports.MessageCatalog,
	defaultLocale string,
	logger *slog.Logger,
) *NotificationUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationUseCase{
		store:         store,
		users:         users,
		catalog:       catalog,
		defaultLocale: defaultLocale,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Deliver stores one rendered notification. Intents for unknown or inactive users are
// dropped; any other failure is returned so the transport may redeliver.
func (uc *NotificationUseCase) Deliver(ctx context.Context, intent domain.NotificationIntent) error {
	if strings.TrimSpace(intent.UserID) == "" || strings.TrimSpace(intent.MessageKey) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "deliver notification", errors.New("user_id and message_key are required"))
	}

	locale := uc.defaultLocale
	user, err := uc.users.GetUser(ctx, intent.UserID)
	switch {
	case domain.IsKind(err, domain.ErrNotFound):
		uc.logger.WarnContext(ctx, "notification_recipient_unknown", "user_id", intent.UserID, "message_key", intent.MessageKey)
		return nil
	case err != nil:
		return fmt.Errorf("lookup recipient: %w", err)
	case !user.Active:
		uc.logger.InfoContext(ctx, "notification_recipient_inactive", "user_id", intent.UserID, "message_key", intent.MessageKey)
		return nil
	case user.Locale != "":
		locale = user.Locale
	}

	title, body, err := uc.catalog.Render(locale, intent.MessageKey, intent.Params)
	if err != nil {
		return fmt.Errorf("render %s: %w", intent.MessageKey, err)
	}

	n := &domain.Notification{
		ID:         uuid.NewString(),
		UserID:     intent.UserID,
		Type:       intent.Type,
		MessageKey: intent.MessageKey,
		Title:      title,
		Body:       body,
		Priority:   intent.Priority,
		Link:       intent.Link,
		CreatedAt:  uc.now(),
	}
	if err := uc.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

func (uc *NotificationUseCase) List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if err := requireActor(actor, "list notifications"); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultInboxLimit
	case limit > maxInboxLimit:
		limit = maxInboxLimit
	}
	return uc.store.ListNotifications(ctx, actor.UserID, unreadOnly, limit)
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	if err := requireActor(actor, "mark notification read"); err != nil {
		return err
	}
	return uc.store.MarkNotificationRead(ctx, actor.UserID, notificationID)
}
