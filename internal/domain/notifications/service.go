package notifications

import (
	"context"
	"fmt"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Notifier delivers one templated message.
type Notifier interface {
	Send(ctx context.Context, recipient Recipient, templateID string, vars map[string]string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

var _ Notifier = (*Service)(nil)

// Send stores an in-app notification for the recipient's user and e-mails
// the recipient when the tenant has e-mail enabled.
func (s *Service) Send(ctx context.Context, recipient Recipient, templateID string, vars map[string]string) error {
	title, body, ok := render(templateID, vars)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
	if recipient.UserID == "" && recipient.Email == "" {
		return ErrNoAddress
	}
	if recipient.UserID != "" {
		if err := s.store.CreateNotification(ctx, recipient.TenantID, recipient.UserID, templateID, title, body); err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}

	if s.Mailer == nil || recipient.Email == "" {
		return nil
	}
	enabled, from := s.emailSettings(ctx, recipient.TenantID)
	if !enabled {
		return nil
	}
	if from == "" {
		from = s.DefaultFrom
	}
	if err := s.Mailer.Send(ctx, from, recipient.Email, title, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, tenantID, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID, userID string) (int, error) {
	return s.store.CountNotifications(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, tenantID, userID, notificationID)
}

func (s *Service) emailSettings(ctx context.Context, tenantID string) (bool, string) {
	enabled, from, err := s.store.EmailSettings(ctx, tenantID)
	if err != nil {
		slog.Warn("notification email settings lookup failed", "tenantId", tenantID, "err", err)
		return false, ""
	}
	return enabled, from
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (bool, string, error) {
	return s.store.EmailSettings(ctx, tenantID)
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	return s.store.UpdateSettings(ctx, tenantID, enabled, from)
}
