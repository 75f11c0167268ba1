package calibration

import (
	"context"
	"fmt"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
)

type SubtreeResolver interface {
	DepartmentSubtree(ctx context.Context, tenantID, departmentID string) ([]string, error)
}

// CandidateSource runs a predicate against persisted employees.
type CandidateSource interface {
	CountCandidates(ctx context.Context, pred Predicate) (int, error)
	ListCandidates(ctx context.Context, pred Predicate, limit int) ([]Candidate, error)
}

type Selector struct {
	source      CandidateSource
	departments SubtreeResolver
	access      *access.Builder
}

func NewSelector(source CandidateSource, departments SubtreeResolver, builder *access.Builder) *Selector {
	return &Selector{source: source, departments: departments, access: builder}
}

// SelectCandidates resolves the session's filter into the predicate used by
// both Preview and Candidates.
func (s *Selector) SelectCandidates(ctx context.Context, scope access.Scope, session Session) (Predicate, error) {
	if scope.TenantID == "" {
		return Predicate{}, access.ErrMissingTenant
	}
	if session.TenantID != "" && session.TenantID != scope.TenantID {
		return Predicate{}, fmt.Errorf("%w: session belongs to another tenant", access.ErrForbidden)
	}
	filter, err := ParseFilter(session.FilterMode, session.FilterConfig, session.DepartmentIDs)
	if err != nil {
		return Predicate{}, err
	}
	visible, err := s.access.Build(ctx, scope, access.ContextAdministrative, access.Options{})
	if err != nil {
		return Predicate{}, err
	}

	pred := Predicate{TenantID: scope.TenantID, CycleID: session.CycleID, Access: visible}
	switch f := filter.(type) {
	case DepartmentFilter:
		ids := []string{}
		for _, id := range f.DepartmentIDs {
			if err := s.access.AuthorizeDepartment(ctx, scope, id); err != nil {
				return Predicate{}, err
			}
			subtree, err := s.departments.DepartmentSubtree(ctx, scope.TenantID, id)
			if err != nil {
				return Predicate{}, fmt.Errorf("resolve department %s: %w", id, err)
			}
			ids = append(ids, subtree...)
		}
		pred.DepartmentIDs = compact(ids)
	case JobLevelFilter:
		pred.JobLevels = append([]int{}, f.Levels...)
		pred.RequireDirectReports = f.OnlyWithReports
	case JobFamilyFilter:
		pred.Positions = make([]string, 0, len(f.Positions))
		for _, p := range f.Positions {
			pred.Positions = append(pred.Positions, normalizePosition(p))
		}
	case DirectReportsFilter:
		pred.ManagerIDs = append([]string{}, f.ManagerIDs...)
	case CustomPicksFilter:
		pred.EmployeeIDs = append([]string{}, f.EmployeeIDs...)
	default:
		return Predicate{}, fmt.Errorf("%w: %T", ErrUnknownMode, filter)
	}
	return pred, nil
}

// Preview returns a capped sample and the full count, both from the same predicate.
func (s *Selector) Preview(ctx context.Context, scope access.Scope, session Session) (Preview, error) {
	pred, err := s.SelectCandidates(ctx, scope, session)
	if err != nil {
		return Preview{}, err
	}
	total, err := s.source.CountCandidates(ctx, pred)
	if err != nil {
		return Preview{}, err
	}
	sample, err := s.source.ListCandidates(ctx, pred, PreviewLimit)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Sample: sample, Total: total}, nil
}

func (s *Selector) Candidates(ctx context.Context, scope access.Scope, session Session) ([]Candidate, error) {
	pred, err := s.SelectCandidates(ctx, scope, session)
	if err != nil {
		return nil, err
	}
	return s.source.ListCandidates(ctx, pred, 0)
}
