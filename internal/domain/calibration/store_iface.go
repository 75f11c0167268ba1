package calibration

import (
	"context"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

type StoreAPI interface {
	CandidateSource

	CreateSession(ctx context.Context, tenantID string, session Session) (string, error)
	GetSession(ctx context.Context, tenantID, sessionID string) (Session, error)
	ListSessions(ctx context.Context, tenantID, cycleID string) ([]Session, error)
	UpdateSessionStatus(ctx context.Context, tenantID, sessionID, from, to string) (bool, error)

	// AddParticipant reports false when the employee already participates.
	AddParticipant(ctx context.Context, tenantID string, participant Participant) (bool, error)
	GetParticipant(ctx context.Context, tenantID, sessionID, employeeID string) (Participant, error)
	ListParticipants(ctx context.Context, tenantID, sessionID string) ([]Participant, error)
	UpdateParticipant(ctx context.Context, tenantID string, participant Participant) error
}

// Ratings is the slice of the performance store calibration writes through.
type Ratings interface {
	GetCycle(ctx context.Context, tenantID, cycleID string) (performance.Cycle, error)
	GetRating(ctx context.Context, tenantID, cycleID, employeeID string) (performance.Rating, error)
	UpdateRating(ctx context.Context, tenantID string, rating performance.Rating) error
}
