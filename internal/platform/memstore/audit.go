package memstore

import (
	"context"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
)

type tenantEvent struct {
	tenantID string
	event    audit.Event
}

func (s *Store) InsertEvent(ctx context.Context, tenantID string, evt audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt.ID = newID()
	evt.CreatedAt = time.Now()
	s.events = append(s.events, tenantEvent{tenantID: tenantID, event: evt})
	return nil
}

func (s *Store) matchingEvents(tenantID string, f audit.Filter) []audit.Event {
	var out []audit.Event
	// newest first
	for i := len(s.events) - 1; i >= 0; i-- {
		te := s.events[i]
		e := te.event
		if te.tenantID != tenantID ||
			(f.Action != "" && e.Action != f.Action) ||
			(f.EntityType != "" && e.EntityType != f.EntityType) ||
			(f.EntityID != "" && e.EntityID != f.EntityID) ||
			(f.ActorUser != "" && e.ActorID != f.ActorUser) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) CountEvents(ctx context.Context, tenantID string, filter audit.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchingEvents(tenantID, filter)), nil
}

func (s *Store) ListEvents(ctx context.Context, tenantID string, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.matchingEvents(tenantID, filter)
	out := []audit.Event{}
	for i := offset; i < len(all) && (limit <= 0 || len(out) < limit); i++ {
		e := all[i]
		if !includeDetails {
			e.Before, e.After = nil, nil
		}
		out = append(out, e)
	}
	return out, nil
}
