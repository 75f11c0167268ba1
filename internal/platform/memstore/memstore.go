// Package memstore is an in-memory implementation of the domain stores for
// service tests and local runs without Postgres.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

type participantKey struct {
	sessionID  string
	employeeID string
}

type ratingKey struct {
	cycleID    string
	employeeID string
}

type Store struct {
	mu sync.RWMutex

	departments  map[string]org.Department
	employees    map[string]org.Employee
	cycles       map[string]performance.Cycle
	assignments  map[string]performance.Assignment
	responses    map[string][]performance.Response
	ratings      map[ratingKey]performance.Rating
	competencies map[string][]performance.Competency
	sessions     map[string]calibration.Session
	participants map[participantKey]calibration.Participant
	campaigns    map[string]Campaign
	events       []tenantEvent
	inbox        []tenantNotification
	settings     map[string]emailSettings
	runs         []tenantRun

	// FailAssignment makes CreateAssignment fail for a matching key.
	FailAssignment func(performance.AssignmentKey) error
}

type Campaign struct {
	ID       string
	TenantID string
	Status   string
}

func New() *Store {
	return &Store{
		departments:  map[string]org.Department{},
		employees:    map[string]org.Employee{},
		cycles:       map[string]performance.Cycle{},
		assignments:  map[string]performance.Assignment{},
		responses:    map[string][]performance.Response{},
		ratings:      map[ratingKey]performance.Rating{},
		competencies: map[string][]performance.Competency{},
		sessions:     map[string]calibration.Session{},
		participants: map[participantKey]calibration.Participant{},
		campaigns:    map[string]Campaign{},
		settings:     map[string]emailSettings{},
	}
}

var (
	_ org.StoreAPI                  = (*Store)(nil)
	_ performance.StoreAPI          = (*Store)(nil)
	_ performance.CampaignActivator = (*Store)(nil)
	_ calibration.StoreAPI          = (*Store)(nil)
	_ audit.StoreAPI                = (*Store)(nil)
	_ notifications.StoreAPI        = (*Store)(nil)
)

func newID() string {
	return uuid.NewString()
}

// AddDepartment seeds a department, assigning an id when empty.
func (s *Store) AddDepartment(d org.Department) org.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = newID()
	}
	if d.Level == 0 {
		d.Level = org.DepartmentLevelUnit
		if parent, ok := s.departments[d.ParentID]; ok {
			d.Level = parent.Level + 1
		}
	}
	d.CreatedAt = time.Now()
	s.departments[d.ID] = d
	return d
}

// AddEmployee seeds an employee, defaulting the id and an active status.
func (s *Store) AddEmployee(e org.Employee) org.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Status == "" {
		e.Status = org.EmployeeStatusActive
	}
	e.CreatedAt = time.Now()
	s.employees[e.ID] = e
	return e
}

func (s *Store) AddCampaign(c Campaign) Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	s.campaigns[c.ID] = c
	return c
}

func (s *Store) Campaign(id string) Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.campaigns[id]
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
