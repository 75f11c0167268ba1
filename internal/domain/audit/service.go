package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

// Record appends one event. Before and After are stored as JSON snapshots.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if e.TenantID == "" {
		return access.ErrMissingTenant
	}
	evt := Event{
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		RequestID:  e.RequestID,
		IP:         e.IP,
	}
	var err error
	if evt.Before, err = snapshot(e.Before); err != nil {
		return fmt.Errorf("encode before: %w", err)
	}
	if evt.After, err = snapshot(e.After); err != nil {
		return fmt.Errorf("encode after: %w", err)
	}
	return s.store.InsertEvent(ctx, e.TenantID, evt)
}

// List returns one page of the tenant's events, newest first, and the total.
func (s *Service) List(ctx context.Context, scope access.Scope, filter Filter, includeDetails bool, limit, offset int) ([]Event, int, error) {
	if err := access.Require(scope, auth.PermAuditRead); err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountEvents(ctx, scope.TenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	events, err := s.store.ListEvents(ctx, scope.TenantID, filter, includeDetails, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
