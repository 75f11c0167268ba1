package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
)

type TransitionObserver interface {
	Transition(from, to string)
}

type Service struct {
	store      StoreAPI
	directory  Directory
	access     *access.Builder
	Generator  *Generator
	Aggregator *Aggregator
	Events     *Events
	observer   TransitionObserver
	now        func() time.Time
}

func NewService(store StoreAPI, directory Directory, builder *access.Builder, weights Weights) *Service {
	return &Service{
		store:      store,
		directory:  directory,
		access:     builder,
		Generator:  NewGenerator(store, directory, PeerPolicy{MaxPeers: DefaultMaxPeers}),
		Aggregator: NewAggregator(store, weights),
		Events:     NewEvents(),
		now:        time.Now,
	}
}

// WithObserver wires metrics into the service and its bulk workers.
func (s *Service) WithObserver(observer interface {
	TransitionObserver
	BatchObserver
}) *Service {
	s.observer = observer
	s.Generator.WithObserver(observer)
	s.Aggregator.WithObserver(observer)
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateCycle(ctx context.Context, scope access.Scope, in Cycle) (Cycle, error) {
	if err := access.Require(scope, auth.PermCyclesManage); err != nil {
		return Cycle{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Cycle{}, ErrMissingName
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && !in.EndDate.After(in.StartDate) {
		return Cycle{}, ErrInvalidCycleWindow
	}
	if in.MinSubordinates < 0 || in.MaxPeers < 0 {
		return Cycle{}, fmt.Errorf("%w: negative thresholds", ErrValidation)
	}
	if in.MinSubordinates == 0 {
		in.MinSubordinates = DefaultMinSubordinates
	}
	if in.MaxPeers == 0 {
		in.MaxPeers = DefaultMaxPeers
	}

	library, err := s.store.ListCompetencies(ctx, scope.TenantID)
	if err != nil {
		return Cycle{}, fmt.Errorf("load competency library: %w", err)
	}
	if len(library) == 0 {
		library = DefaultCompetencies
	}
	in.TenantID = scope.TenantID
	in.Status = CycleStatusDraft
	in.CompetencySnapshot, err = NewSnapshot(library)
	if err != nil {
		return Cycle{}, err
	}

	id, err := s.store.CreateCycle(ctx, scope.TenantID, in)
	if err != nil {
		return Cycle{}, err
	}
	return s.store.GetCycle(ctx, scope.TenantID, id)
}

func (s *Service) GetCycle(ctx context.Context, scope access.Scope, cycleID string) (Cycle, error) {
	if err := requireAny(scope, auth.PermCyclesRead, auth.PermParticipate); err != nil {
		return Cycle{}, err
	}
	return s.store.GetCycle(ctx, scope.TenantID, cycleID)
}

func (s *Service) ListCycles(ctx context.Context, scope access.Scope) ([]Cycle, error) {
	if err := requireAny(scope, auth.PermCyclesRead, auth.PermParticipate); err != nil {
		return nil, err
	}
	return s.store.ListCycles(ctx, scope.TenantID)
}

// Transition moves a cycle to status to, then runs the handlers bound to
// that status. Handler failures come back as warnings; the status change stands.
func (s *Service) Transition(ctx context.Context, scope access.Scope, cycleID, to string) (TransitionResult, error) {
	if err := access.Require(scope, auth.PermCyclesManage); err != nil {
		return TransitionResult{}, err
	}
	return s.transition(ctx, scope.TenantID, cycleID, to)
}

func (s *Service) transition(ctx context.Context, tenantID, cycleID, to string) (TransitionResult, error) {
	cycle, err := s.store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return TransitionResult{}, err
	}
	from := cycle.Status
	if err := CheckTransition(from, to); err != nil {
		return TransitionResult{}, err
	}
	ok, err := s.store.UpdateCycleStatus(ctx, tenantID, cycleID, from, to)
	if err != nil {
		return TransitionResult{}, err
	}
	if !ok {
		// another writer moved the cycle first
		current, err := s.store.GetCycle(ctx, tenantID, cycleID)
		if err != nil {
			return TransitionResult{}, err
		}
		return TransitionResult{}, &TransitionError{From: current.Status, To: to}
	}
	cycle.Status = to
	if s.observer != nil {
		s.observer.Transition(from, to)
	}
	slog.Info("cycle transitioned", "tenantId", tenantID, "cycleId", cycleID, "from", from, "to", to)

	out := s.Events.Publish(ctx, TransitionEvent{TenantID: tenantID, Cycle: cycle, From: from, To: to, At: s.now()})
	return TransitionResult{Cycle: cycle, Warnings: out.Warnings, Queued: out.Queued}, nil
}

// Retrigger re-runs one named handler of the cycle's current status.
func (s *Service) Retrigger(ctx context.Context, scope access.Scope, cycleID, handler string) (Outcome, error) {
	if err := access.Require(scope, auth.PermCyclesManage); err != nil {
		return Outcome{}, err
	}
	cycle, err := s.store.GetCycle(ctx, scope.TenantID, cycleID)
	if err != nil {
		return Outcome{}, err
	}
	return s.Events.Replay(ctx, TransitionEvent{TenantID: scope.TenantID, Cycle: cycle, From: cycle.Status, To: cycle.Status, At: s.now()}, handler)
}

// ActivateDue activates every scheduled cycle whose start date has passed.
func (s *Service) ActivateDue(ctx context.Context, asOf time.Time) (BatchResult, error) {
	cycles, err := s.store.DueScheduledCycles(ctx, asOf)
	if err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	for _, cycle := range cycles {
		res, err := s.transition(ctx, cycle.TenantID, cycle.ID, CycleStatusActive)
		if err != nil {
			result.fail("", cycle.ID, err)
			continue
		}
		result.Created++
		for _, w := range res.Warnings {
			slog.Warn("scheduled activation side effect failed", "cycleId", cycle.ID, "source", w.Source, "message", w.Message)
		}
	}
	return result, nil
}

func (s *Service) DeleteCycle(ctx context.Context, scope access.Scope, cycleID string) error {
	if err := access.Require(scope, auth.PermCyclesManage); err != nil {
		return err
	}
	cycle, err := s.store.GetCycle(ctx, scope.TenantID, cycleID)
	if err != nil {
		return err
	}
	if !Deletable(cycle.Status) {
		return fmt.Errorf("%w: cycle is %s", ErrCycleLocked, cycle.Status)
	}
	ok, err := s.store.DeleteCycle(ctx, scope.TenantID, cycleID, []string{CycleStatusDraft, CycleStatusScheduled})
	if err != nil {
		return err
	}
	if !ok {
		return ErrCycleLocked
	}
	return nil
}

func (s *Service) GenerateAssignments(ctx context.Context, scope access.Scope, cycleID string) (BatchResult, error) {
	if err := access.Require(scope, auth.PermAssignmentsGenerate); err != nil {
		return BatchResult{}, err
	}
	cycle, err := s.store.GetCycle(ctx, scope.TenantID, cycleID)
	if err != nil {
		return BatchResult{}, err
	}
	return s.Generator.Generate(ctx, cycle)
}

func (s *Service) GenerateForEmployee(ctx context.Context, scope access.Scope, cycleID, employeeID string) (BatchResult, error) {
	if err := access.Require(scope, auth.PermAssignmentsGenerate); err != nil {
		return BatchResult{}, err
	}
	cycle, err := s.store.GetCycle(ctx, scope.TenantID, cycleID)
	if err != nil {
		return BatchResult{}, err
	}
	return s.Generator.GenerateForEmployee(ctx, cycle, employeeID)
}

// MyAssignments lists the assignments the caller has to complete.
func (s *Service) MyAssignments(ctx context.Context, scope access.Scope, cycleID string) ([]Assignment, error) {
	filter, err := s.access.Build(ctx, scope, access.ContextParticipation, access.Options{})
	if err != nil {
		return nil, err
	}
	if filter.DenyAll() || scope.EmployeeID == "" {
		return []Assignment{}, nil
	}
	return s.store.ListAssignments(ctx, scope.TenantID, AssignmentQuery{CycleID: cycleID, EvaluatorID: scope.EmployeeID, Filter: filter})
}

// ListAssignments lists assignments whose evaluatee the caller may see.
func (s *Service) ListAssignments(ctx context.Context, scope access.Scope, cycleID, status string) ([]Assignment, error) {
	filter, err := s.access.Build(ctx, scope, access.ContextAdministrative, access.Options{})
	if err != nil {
		return nil, err
	}
	if filter.DenyAll() {
		return []Assignment{}, nil
	}
	return s.store.ListAssignments(ctx, scope.TenantID, AssignmentQuery{CycleID: cycleID, Status: status, Filter: filter})
}

func (s *Service) SubmitResponses(ctx context.Context, scope access.Scope, assignmentID string, responses []Response) error {
	if err := access.Require(scope, auth.PermParticipate); err != nil {
		return err
	}
	if len(responses) == 0 {
		return fmt.Errorf("%w: no responses", ErrValidation)
	}
	for _, r := range responses {
		if r.Score < MinScore || r.Score > MaxScore {
			return fmt.Errorf("%w: %s=%v", ErrInvalidScore, r.CompetencyCode, r.Score)
		}
	}

	assignment, err := s.store.GetAssignment(ctx, scope.TenantID, assignmentID)
	if err != nil {
		return err
	}
	if scope.EmployeeID == "" || assignment.EvaluatorID != scope.EmployeeID {
		return fmt.Errorf("%w: %w", access.ErrForbidden, ErrNotEvaluator)
	}
	if assignment.Status != AssignmentStatusPending && assignment.Status != AssignmentStatusInProgress {
		return fmt.Errorf("%w: assignment is %s", ErrAssignmentClosed, assignment.Status)
	}
	cycle, err := s.store.GetCycle(ctx, scope.TenantID, assignment.CycleID)
	if err != nil {
		return err
	}
	if cycle.Status != CycleStatusActive {
		return fmt.Errorf("%w: cycle is %s", ErrAssignmentClosed, cycle.Status)
	}
	evaluatee, err := s.directory.GetEmployee(ctx, scope.TenantID, assignment.EvaluateeID)
	if err != nil {
		return fmt.Errorf("load evaluatee: %w", err)
	}
	applicable := map[string]bool{}
	for _, c := range CompetenciesFor(evaluatee, cycle.CompetencySnapshot) {
		applicable[c.Code] = true
	}
	seen := map[string]bool{}
	for i := range responses {
		code := responses[i].CompetencyCode
		if !applicable[code] {
			return fmt.Errorf("%w: %s", ErrUnknownCompetency, code)
		}
		if seen[code] {
			return fmt.Errorf("%w: duplicate competency %s", ErrValidation, code)
		}
		seen[code] = true
		responses[i].AssignmentID = assignmentID
	}
	return s.store.SaveResponses(ctx, scope.TenantID, assignmentID, responses, s.now())
}

// EmployeeProfile returns the gap analysis for one employee the caller may see.
func (s *Service) EmployeeProfile(ctx context.Context, scope access.Scope, cycleID, employeeID string) (Profile, error) {
	if err := access.Require(scope, auth.PermResultsRead); err != nil {
		return Profile{}, err
	}
	emp, err := s.directory.GetEmployee(ctx, scope.TenantID, employeeID)
	if err != nil {
		return Profile{}, err
	}
	filter, err := s.access.Build(ctx, scope, access.ContextResults, access.Options{})
	if err != nil {
		return Profile{}, err
	}
	if !filter.Matches(emp.TenantID, emp.DepartmentID) {
		return Profile{}, fmt.Errorf("%w: employee %s", access.ErrForbidden, employeeID)
	}
	return s.Aggregator.Profile(ctx, scope.TenantID, cycleID, employeeID)
}

// ListRatings returns the ratings visible to the caller. CompanyWide lifts the
// department restriction for ranking views.
func (s *Service) ListRatings(ctx context.Context, scope access.Scope, cycleID string, opts access.Options) ([]Rating, error) {
	if err := access.Require(scope, auth.PermResultsRead); err != nil {
		return nil, err
	}
	filter, err := s.access.Build(ctx, scope, access.ContextResults, opts)
	if err != nil {
		return nil, err
	}
	if filter.DenyAll() {
		return []Rating{}, nil
	}
	return s.store.ListRatings(ctx, scope.TenantID, RatingQuery{CycleID: cycleID, Filter: filter})
}

// DepartmentRatings drills into one department subtree. The department must be
// inside the caller's own subtree whatever view the caller otherwise has.
func (s *Service) DepartmentRatings(ctx context.Context, scope access.Scope, cycleID, departmentID string) ([]Rating, error) {
	if err := access.Require(scope, auth.PermResultsRead); err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeDepartment(ctx, scope, departmentID); err != nil {
		return nil, err
	}
	subtree, err := s.directory.DepartmentSubtree(ctx, scope.TenantID, departmentID)
	if err != nil {
		return nil, err
	}
	return s.store.ListRatings(ctx, scope.TenantID, RatingQuery{CycleID: cycleID, Filter: access.ForDepartments(scope.TenantID, subtree)})
}

// RatePotential stores the potential assessment of an employee. Only the
// employee's direct manager or a role holding the potential capability may write it.
func (s *Service) RatePotential(ctx context.Context, scope access.Scope, cycleID, employeeID string, factors PotentialFactors) (Rating, error) {
	score, level, err := ClassifyPotential(factors)
	if err != nil {
		return Rating{}, err
	}
	if scope.TenantID == "" {
		return Rating{}, access.ErrMissingTenant
	}
	if _, err := s.directory.GetEmployee(ctx, scope.TenantID, employeeID); err != nil {
		return Rating{}, err
	}
	if !auth.HasPermission(scope.Role, auth.PermPotentialWrite) {
		isManager, err := s.directory.IsDirectManager(ctx, scope.TenantID, scope.EmployeeID, employeeID)
		if err != nil {
			return Rating{}, err
		}
		if !isManager {
			return Rating{}, fmt.Errorf("%w: not the direct manager of %s", access.ErrForbidden, employeeID)
		}
	}

	cycle, err := s.store.GetCycle(ctx, scope.TenantID, cycleID)
	if err != nil {
		return Rating{}, err
	}
	if cycle.Status != CycleStatusActive && cycle.Status != CycleStatusInReview {
		return Rating{}, fmt.Errorf("%w: cycle is %s", ErrCycleNotOpen, cycle.Status)
	}

	rating, err := s.store.EnsureRating(ctx, scope.TenantID, cycleID, employeeID)
	if err != nil {
		return Rating{}, err
	}
	rating.Aspiration = factors.Aspiration
	rating.Ability = factors.Ability
	rating.Engagement = factors.Engagement
	rating.PotentialScore = score
	rating.PotentialLevel = level
	rating.Recompute()
	if err := s.store.UpdateRating(ctx, scope.TenantID, rating); err != nil {
		return Rating{}, err
	}
	return rating, nil
}

// RatifyRatings finalizes every aggregated rating of the cycle. Calibrated
// scores are kept; uncalibrated ones take the calculated score.
func (s *Service) RatifyRatings(ctx context.Context, scope access.Scope, cycleID string) (BatchResult, error) {
	if err := access.Require(scope, auth.PermRatingsRatify); err != nil {
		return BatchResult{}, err
	}
	cycle, err := s.store.GetCycle(ctx, scope.TenantID, cycleID)
	if err != nil {
		return BatchResult{}, err
	}
	if cycle.Status != CycleStatusInReview {
		return BatchResult{}, fmt.Errorf("%w: cycle is %s", ErrNotInReview, cycle.Status)
	}
	ratings, err := s.store.ListRatings(ctx, scope.TenantID, RatingQuery{CycleID: cycleID, Filter: access.Internal(scope.TenantID)})
	if err != nil {
		return BatchResult{}, err
	}
	now := s.now()
	var result BatchResult
	for _, r := range ratings {
		if r.RatifiedAt != nil || (r.FinalScore == nil && r.CalculatedScore <= 0) {
			result.Skipped++
			continue
		}
		if r.FinalScore == nil {
			final := r.CalculatedScore
			r.FinalScore = &final
		}
		r.RatifiedAt = &now
		r.Recompute()
		if err := s.store.UpdateRating(ctx, scope.TenantID, r); err != nil {
			result.fail(r.EmployeeID, r.ID, err)
			continue
		}
		result.Created++
	}
	return result, nil
}

// SeedDefaults installs the default competency library for the tenant.
func (s *Service) SeedDefaults(ctx context.Context, scope access.Scope) (BatchResult, error) {
	if err := access.Require(scope, auth.PermCyclesManage); err != nil {
		return BatchResult{}, err
	}
	existing, err := s.store.ListCompetencies(ctx, scope.TenantID)
	if err != nil {
		return BatchResult{}, err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.Code] = true
	}
	var result BatchResult
	for _, c := range DefaultCompetencies {
		if have[c.Code] {
			result.Skipped++
			continue
		}
		err := s.store.CreateCompetency(ctx, scope.TenantID, c)
		switch {
		case errors.Is(err, ErrDuplicate):
			result.Skipped++
		case err != nil:
			result.fail("", c.Code, err)
		default:
			result.Created++
		}
	}
	return result, nil
}

func (s *Service) ListCompetencies(ctx context.Context, scope access.Scope) ([]Competency, error) {
	if err := requireAny(scope, auth.PermCyclesRead, auth.PermParticipate); err != nil {
		return nil, err
	}
	return s.store.ListCompetencies(ctx, scope.TenantID)
}

// Aggregate re-runs the cycle-wide aggregation pass.
func (s *Service) Aggregate(ctx context.Context, scope access.Scope, cycleID string) (BatchResult, error) {
	if err := access.Require(scope, auth.PermCyclesManage); err != nil {
		return BatchResult{}, err
	}
	if _, err := s.store.GetCycle(ctx, scope.TenantID, cycleID); err != nil {
		return BatchResult{}, err
	}
	return s.Aggregator.AggregateCycle(ctx, scope.TenantID, cycleID)
}

func requireAny(scope access.Scope, permissions ...string) error {
	var err error
	for _, p := range permissions {
		if err = access.Require(scope, p); err == nil {
			return nil
		}
	}
	return err
}
