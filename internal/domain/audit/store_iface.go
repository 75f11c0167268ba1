package audit

import "context"

type StoreAPI interface {
	InsertEvent(ctx context.Context, tenantID string, evt Event) error
	CountEvents(ctx context.Context, tenantID string, filter Filter) (int, error)
	ListEvents(ctx context.Context, tenantID string, filter Filter, includeDetails bool, limit, offset int) ([]Event, error)
}
