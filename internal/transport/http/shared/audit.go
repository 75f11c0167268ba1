package shared

import (
	"log/slog"
	"net/http"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/middleware"
)

// RecordAudit appends an audit event for the calling user. Failures are
// logged and never fail the request.
func RecordAudit(r *http.Request, svc *audit.Service, action, entityType, entityID string, before, after any) {
	if svc == nil {
		return
	}
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return
	}
	err := svc.Record(r.Context(), audit.Entry{
		TenantID:   user.TenantID,
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         middleware.GetClientIP(r.Context()),
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}
