package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
)

func (s *Store) subjects(pred calibration.Predicate) []calibration.Candidate {
	reports := map[string]int{}
	for _, e := range s.employees {
		if e.Active() && e.ManagerID != "" {
			reports[e.ManagerID]++
		}
	}
	var out []calibration.Candidate
	for _, e := range s.employees {
		r, hasRating := s.ratings[ratingKey{cycleID: pred.CycleID, employeeID: e.ID}]
		subject := calibration.Subject{
			TenantID:         e.TenantID,
			EmployeeID:       e.ID,
			DepartmentID:     e.DepartmentID,
			ManagerID:        e.ManagerID,
			Position:         e.Position,
			StandardJobLevel: e.StandardJobLevel,
			Active:           e.Active(),
			HasRating:        hasRating && r.TenantID == e.TenantID && r.CalculatedScore > 0,
			DirectReports:    reports[e.ID],
		}
		if !pred.Matches(subject) {
			continue
		}
		out = append(out, calibration.Candidate{
			EmployeeID:       e.ID,
			FullName:         e.FullName,
			DepartmentID:     e.DepartmentID,
			ManagerID:        e.ManagerID,
			Position:         e.Position,
			StandardJobLevel: e.StandardJobLevel,
			Score:            r.EffectiveScore(),
			NineBoxPosition:  r.NineBoxPosition,
		})
	}
	sortCandidates(out)
	return out
}

func sortCandidates(c []calibration.Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].FullName != c[j].FullName {
			return c[i].FullName < c[j].FullName
		}
		return c[i].EmployeeID < c[j].EmployeeID
	})
}

func (s *Store) CountCandidates(ctx context.Context, pred calibration.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subjects(pred)), nil
}

func (s *Store) ListCandidates(ctx context.Context, pred calibration.Predicate, limit int) ([]calibration.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.subjects(pred)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []calibration.Candidate{}
	}
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, tenantID string, session calibration.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.ID = newID()
	session.TenantID = tenantID
	session.CreatedAt = time.Now()
	s.sessions[session.ID] = session
	return session.ID, nil
}

func (s *Store) GetSession(ctx context.Context, tenantID, sessionID string) (calibration.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.TenantID != tenantID {
		return calibration.Session{}, calibration.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, tenantID, cycleID string) ([]calibration.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []calibration.Session{}
	for _, sess := range sortedValues(s.sessions, func(a, b calibration.Session) bool { return a.CreatedAt.After(b.CreatedAt) }) {
		if sess.TenantID == tenantID && (cycleID == "" || sess.CycleID == cycleID) {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, tenantID, sessionID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.TenantID != tenantID || sess.Status != from {
		return false, nil
	}
	sess.Status = to
	if to == calibration.SessionStatusClosed {
		now := time.Now()
		sess.ClosedAt = &now
	}
	s.sessions[sessionID] = sess
	return true, nil
}

func (s *Store) AddParticipant(ctx context.Context, tenantID string, p calibration.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[p.SessionID]
	if !ok || sess.TenantID != tenantID {
		return false, calibration.ErrNotFound
	}
	key := participantKey{sessionID: p.SessionID, employeeID: p.EmployeeID}
	if _, exists := s.participants[key]; exists {
		return false, nil
	}
	s.participants[key] = p
	return true, nil
}

func (s *Store) GetParticipant(ctx context.Context, tenantID, sessionID, employeeID string) (calibration.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	p, exists := s.participants[participantKey{sessionID: sessionID, employeeID: employeeID}]
	if !ok || sess.TenantID != tenantID || !exists {
		return calibration.Participant{}, calibration.ErrNotParticipant
	}
	return s.decorateParticipant(p), nil
}

func (s *Store) decorateParticipant(p calibration.Participant) calibration.Participant {
	e := s.employees[p.EmployeeID]
	p.EmployeeName = e.FullName
	p.DepartmentID = e.DepartmentID
	return p
}

func (s *Store) ListParticipants(ctx context.Context, tenantID, sessionID string) ([]calibration.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []calibration.Participant{}
	sess, ok := s.sessions[sessionID]
	if !ok || sess.TenantID != tenantID {
		return out, nil
	}
	all := sortedValues(s.participants, func(a, b calibration.Participant) bool { return a.EmployeeID < b.EmployeeID })
	for _, p := range all {
		if p.SessionID == sessionID {
			out = append(out, s.decorateParticipant(p))
		}
	}
	return out, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, tenantID string, p calibration.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[p.SessionID]
	key := participantKey{sessionID: p.SessionID, employeeID: p.EmployeeID}
	if _, exists := s.participants[key]; !ok || sess.TenantID != tenantID || !exists {
		return calibration.ErrNotParticipant
	}
	p.EmployeeName = ""
	p.DepartmentID = ""
	s.participants[key] = p
	return nil
}
