package memstore

import (
	"context"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

func (s *Store) CreateCycle(ctx context.Context, tenantID string, cycle performance.Cycle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cycle.ID = newID()
	cycle.TenantID = tenantID
	cycle.CreatedAt = time.Now()
	s.cycles[cycle.ID] = cycle
	return cycle.ID, nil
}

func (s *Store) GetCycle(ctx context.Context, tenantID, cycleID string) (performance.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cycles[cycleID]
	if !ok || c.TenantID != tenantID {
		return performance.Cycle{}, performance.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCycles(ctx context.Context, tenantID string) ([]performance.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []performance.Cycle{}
	for _, c := range sortedValues(s.cycles, func(a, b performance.Cycle) bool { return a.StartDate.After(b.StartDate) }) {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) UpdateCycleStatus(ctx context.Context, tenantID, cycleID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[cycleID]
	if !ok || c.TenantID != tenantID || c.Status != from {
		return false, nil
	}
	c.Status = to
	s.cycles[cycleID] = c
	return true, nil
}

func (s *Store) DeleteCycle(ctx context.Context, tenantID, cycleID string, allowedStatuses []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[cycleID]
	if !ok || c.TenantID != tenantID {
		return false, nil
	}
	allowed := false
	for _, st := range allowedStatuses {
		if c.Status == st {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	delete(s.cycles, cycleID)
	for id, a := range s.assignments {
		if a.CycleID == cycleID {
			delete(s.assignments, id)
			delete(s.responses, id)
		}
	}
	for k := range s.ratings {
		if k.cycleID == cycleID {
			delete(s.ratings, k)
		}
	}
	return true, nil
}

func (s *Store) DueScheduledCycles(ctx context.Context, asOf time.Time) ([]performance.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []performance.Cycle
	for _, c := range sortedValues(s.cycles, func(a, b performance.Cycle) bool { return a.StartDate.Before(b.StartDate) }) {
		if c.Status == performance.CycleStatusScheduled && !c.StartDate.After(asOf) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) AssignmentExists(ctx context.Context, tenantID string, key performance.AssignmentKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.findAssignment(tenantID, key)
	return ok, nil
}

func (s *Store) findAssignment(tenantID string, key performance.AssignmentKey) (performance.Assignment, bool) {
	for _, a := range s.assignments {
		if a.TenantID == tenantID && a.Key() == key {
			return a, true
		}
	}
	return performance.Assignment{}, false
}

// CreateAssignment enforces the same uniqueness as the database constraint.
func (s *Store) CreateAssignment(ctx context.Context, tenantID string, a performance.Assignment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAssignment != nil {
		if err := s.FailAssignment(a.Key()); err != nil {
			return "", err
		}
	}
	if _, ok := s.findAssignment(tenantID, a.Key()); ok {
		return "", performance.ErrDuplicate
	}
	a.ID = newID()
	a.TenantID = tenantID
	s.assignments[a.ID] = a
	return a.ID, nil
}

func (s *Store) GetAssignment(ctx context.Context, tenantID, assignmentID string) (performance.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok || a.TenantID != tenantID {
		return performance.Assignment{}, performance.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, tenantID string, q performance.AssignmentQuery) ([]performance.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedValues(s.assignments, func(a, b performance.Assignment) bool {
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.ID < b.ID
	})
	out := []performance.Assignment{}
	for _, a := range all {
		if a.TenantID != tenantID {
			continue
		}
		if (q.CycleID != "" && a.CycleID != q.CycleID) ||
			(q.EvaluatorID != "" && a.EvaluatorID != q.EvaluatorID) ||
			(q.EvaluateeID != "" && a.EvaluateeID != q.EvaluateeID) ||
			(q.Status != "" && a.Status != q.Status) {
			continue
		}
		evaluatee := s.employees[a.EvaluateeID]
		if !q.Filter.Matches(evaluatee.TenantID, evaluatee.DepartmentID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) SaveResponses(ctx context.Context, tenantID, assignmentID string, responses []performance.Response, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok || a.TenantID != tenantID {
		return performance.ErrNotFound
	}
	if a.Status != performance.AssignmentStatusPending && a.Status != performance.AssignmentStatusInProgress {
		return performance.ErrAssignmentClosed
	}
	a.Status = performance.AssignmentStatusCompleted
	a.CompletedAt = &completedAt
	s.assignments[assignmentID] = a
	s.responses[assignmentID] = append([]performance.Response(nil), responses...)
	return nil
}

// CompleteAssignment stores responses without the service checks, for seeding.
func (s *Store) CompleteAssignment(tenantID string, key performance.AssignmentKey, scores map[string]float64) error {
	s.mu.RLock()
	a, ok := s.findAssignment(tenantID, key)
	s.mu.RUnlock()
	if !ok {
		return performance.ErrNotFound
	}
	responses := make([]performance.Response, 0, len(scores))
	for code, score := range scores {
		responses = append(responses, performance.Response{AssignmentID: a.ID, CompetencyCode: code, Score: score})
	}
	return s.SaveResponses(context.Background(), tenantID, a.ID, responses, time.Now())
}

func (s *Store) CompletedEvaluations(ctx context.Context, tenantID, cycleID, evaluateeID string) ([]performance.RaterScores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []performance.RaterScores
	for _, a := range sortedValues(s.assignments, func(a, b performance.Assignment) bool { return a.ID < b.ID }) {
		if a.TenantID != tenantID || a.CycleID != cycleID || a.EvaluateeID != evaluateeID || a.Status != performance.AssignmentStatusCompleted {
			continue
		}
		rs := performance.RaterScores{AssignmentID: a.ID, EvaluatorID: a.EvaluatorID, Type: a.Type, Scores: map[string]float64{}}
		for _, r := range s.responses[a.ID] {
			rs.Scores[r.CompetencyCode] = r.Score
		}
		if len(rs.Scores) > 0 {
			out = append(out, rs)
		}
	}
	return out, nil
}

func (s *Store) EvaluateesWithCompleted(ctx context.Context, tenantID, cycleID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range sortedValues(s.assignments, func(a, b performance.Assignment) bool { return a.EvaluateeID < b.EvaluateeID }) {
		if a.TenantID == tenantID && a.CycleID == cycleID && a.Status == performance.AssignmentStatusCompleted && !seen[a.EvaluateeID] {
			seen[a.EvaluateeID] = true
			out = append(out, a.EvaluateeID)
		}
	}
	return out, nil
}

func (s *Store) EnsureRating(ctx context.Context, tenantID, cycleID, employeeID string) (performance.Rating, error) {
	s.mu.Lock()
	key := ratingKey{cycleID: cycleID, employeeID: employeeID}
	if _, ok := s.ratings[key]; !ok {
		s.ratings[key] = performance.Rating{
			ID:         newID(),
			TenantID:   tenantID,
			CycleID:    cycleID,
			EmployeeID: employeeID,
			UpdatedAt:  time.Now(),
		}
	}
	s.mu.Unlock()
	return s.GetRating(ctx, tenantID, cycleID, employeeID)
}

func (s *Store) GetRating(ctx context.Context, tenantID, cycleID, employeeID string) (performance.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[ratingKey{cycleID: cycleID, employeeID: employeeID}]
	if !ok || r.TenantID != tenantID {
		return performance.Rating{}, performance.ErrNotFound
	}
	return s.decorate(r), nil
}

func (s *Store) decorate(r performance.Rating) performance.Rating {
	e := s.employees[r.EmployeeID]
	r.EmployeeName = e.FullName
	r.DepartmentID = e.DepartmentID
	return r
}

func (s *Store) UpdateRating(ctx context.Context, tenantID string, r performance.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ratingKey{cycleID: r.CycleID, employeeID: r.EmployeeID}
	current, ok := s.ratings[key]
	if !ok || current.TenantID != tenantID || current.ID != r.ID {
		return performance.ErrNotFound
	}
	r.TenantID = tenantID
	r.EmployeeName = ""
	r.DepartmentID = ""
	r.UpdatedAt = time.Now()
	s.ratings[key] = r
	return nil
}

func (s *Store) ListRatings(ctx context.Context, tenantID string, q performance.RatingQuery) ([]performance.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedValues(s.ratings, func(a, b performance.Rating) bool {
		if a.EffectiveScore() != b.EffectiveScore() {
			return a.EffectiveScore() > b.EffectiveScore()
		}
		return a.EmployeeID < b.EmployeeID
	})
	out := []performance.Rating{}
	for _, r := range all {
		if r.TenantID != tenantID || r.CycleID != q.CycleID {
			continue
		}
		e := s.employees[r.EmployeeID]
		if !q.Filter.Matches(e.TenantID, e.DepartmentID) {
			continue
		}
		out = append(out, s.decorate(r))
	}
	return out, nil
}

func (s *Store) ListCompetencies(ctx context.Context, tenantID string) ([]performance.Competency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]performance.Competency{}, s.competencies[tenantID]...), nil
}

func (s *Store) CreateCompetency(ctx context.Context, tenantID string, c performance.Competency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.competencies[tenantID] {
		if existing.Code == c.Code {
			return performance.ErrDuplicate
		}
	}
	s.competencies[tenantID] = append(s.competencies[tenantID], c)
	return nil
}

func (s *Store) CampaignStatus(ctx context.Context, tenantID, campaignID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[campaignID]
	if !ok || c.TenantID != tenantID {
		return "", performance.ErrNotFound
	}
	return c.Status, nil
}

func (s *Store) ActivateCampaign(ctx context.Context, tenantID, campaignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok || c.TenantID != tenantID {
		return performance.ErrNotFound
	}
	if c.Status == performance.CampaignStatusDraft {
		c.Status = performance.CampaignStatusActive
		s.campaigns[campaignID] = c
	}
	return nil
}
