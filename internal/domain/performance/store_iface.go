package performance

import (
	"context"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
)

type StoreAPI interface {
	CreateCycle(ctx context.Context, tenantID string, cycle Cycle) (string, error)
	GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error)
	ListCycles(ctx context.Context, tenantID string) ([]Cycle, error)
	// UpdateCycleStatus writes to only while the cycle is still in from.
	UpdateCycleStatus(ctx context.Context, tenantID, cycleID, from, to string) (bool, error)
	DeleteCycle(ctx context.Context, tenantID, cycleID string, allowedStatuses []string) (bool, error)
	DueScheduledCycles(ctx context.Context, asOf time.Time) ([]Cycle, error)

	AssignmentExists(ctx context.Context, tenantID string, key AssignmentKey) (bool, error)
	CreateAssignment(ctx context.Context, tenantID string, assignment Assignment) (string, error)
	GetAssignment(ctx context.Context, tenantID, assignmentID string) (Assignment, error)
	ListAssignments(ctx context.Context, tenantID string, query AssignmentQuery) ([]Assignment, error)
	SaveResponses(ctx context.Context, tenantID, assignmentID string, responses []Response, completedAt time.Time) error

	CompletedEvaluations(ctx context.Context, tenantID, cycleID, evaluateeID string) ([]RaterScores, error)
	EvaluateesWithCompleted(ctx context.Context, tenantID, cycleID string) ([]string, error)

	EnsureRating(ctx context.Context, tenantID, cycleID, employeeID string) (Rating, error)
	GetRating(ctx context.Context, tenantID, cycleID, employeeID string) (Rating, error)
	UpdateRating(ctx context.Context, tenantID string, rating Rating) error
	ListRatings(ctx context.Context, tenantID string, query RatingQuery) ([]Rating, error)

	ListCompetencies(ctx context.Context, tenantID string) ([]Competency, error)
	CreateCompetency(ctx context.Context, tenantID string, competency Competency) error
}

// Directory is the read side of the org hierarchy the engine consumes.
type Directory interface {
	GetEmployee(ctx context.Context, tenantID, employeeID string) (org.Employee, error)
	ListEmployees(ctx context.Context, tenantID string, filter org.EmployeeFilter) ([]org.Employee, error)
	DepartmentSubtree(ctx context.Context, tenantID, departmentID string) ([]string, error)
	IsDirectManager(ctx context.Context, tenantID, managerID, employeeID string) (bool, error)
}

// CampaignActivator is the outward-facing campaign linked to a cycle.
type CampaignActivator interface {
	CampaignStatus(ctx context.Context, tenantID, campaignID string) (string, error)
	ActivateCampaign(ctx context.Context, tenantID, campaignID string) error
}
