package memstore

import (
	"context"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
)

type tenantNotification struct {
	tenantID string
	userID   string
	item     notifications.Notification
}

type emailSettings struct {
	enabled bool
	from    string
}

func (s *Store) CreateNotification(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, tenantNotification{
		tenantID: tenantID,
		userID:   userID,
		item:     notifications.Notification{ID: newID(), Type: ntype, Title: title, Body: body, CreatedAt: time.Now()},
	})
	return nil
}

func (s *Store) userInbox(tenantID, userID string) []notifications.Notification {
	var out []notifications.Notification
	for i := len(s.inbox) - 1; i >= 0; i-- {
		n := s.inbox[i]
		if n.tenantID == tenantID && n.userID == userID {
			out = append(out, n.item)
		}
	}
	return out
}

func (s *Store) ListNotifications(ctx context.Context, tenantID, userID string, limit, offset int) ([]notifications.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.userInbox(tenantID, userID)
	out := []notifications.Notification{}
	for i := offset; i < len(all) && (limit <= 0 || len(out) < limit); i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context, tenantID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.userInbox(tenantID, userID)), nil
}

func (s *Store) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i := range s.inbox {
		n := &s.inbox[i]
		if n.tenantID == tenantID && n.userID == userID && n.item.ID == notificationID {
			n.item.ReadAt = &now
		}
	}
	return nil
}

func (s *Store) EmailSettings(ctx context.Context, tenantID string) (bool, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.settings[tenantID]
	return st.enabled, st.from, nil
}

func (s *Store) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[tenantID] = emailSettings{enabled: enabled, from: from}
	return nil
}
