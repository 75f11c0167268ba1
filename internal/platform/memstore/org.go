package memstore

import (
	"context"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
)

func (s *Store) DepartmentEdges(ctx context.Context, tenantID string) ([]org.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []org.Edge
	for _, d := range s.departments {
		if d.TenantID == tenantID {
			out = append(out, org.Edge{ID: d.ID, ParentID: d.ParentID})
		}
	}
	return out, nil
}

func (s *Store) ReportingEdges(ctx context.Context, tenantID string) ([]org.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []org.Edge
	for _, e := range s.employees {
		if e.TenantID == tenantID && e.Active() {
			out = append(out, org.Edge{ID: e.ID, ParentID: e.ManagerID})
		}
	}
	return out, nil
}

func (s *Store) GetDepartment(ctx context.Context, tenantID, departmentID string) (org.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[departmentID]
	if !ok || d.TenantID != tenantID {
		return org.Department{}, org.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDepartments(ctx context.Context, tenantID string) ([]org.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedValues(s.departments, func(a, b org.Department) bool {
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.Name < b.Name
	})
	out := []org.Department{}
	for _, d := range all {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) CreateDepartment(ctx context.Context, tenantID string, dept org.Department) (string, error) {
	dept.TenantID = tenantID
	dept.ID = ""
	return s.AddDepartment(dept).ID, nil
}

func (s *Store) UpdateDepartmentParent(ctx context.Context, tenantID, departmentID, parentID string, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[departmentID]
	if !ok || d.TenantID != tenantID {
		return org.ErrNotFound
	}
	d.ParentID = parentID
	d.Level = level
	s.departments[departmentID] = d
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, tenantID, departmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[departmentID]
	if !ok || d.TenantID != tenantID {
		return org.ErrNotFound
	}
	for _, e := range s.employees {
		if e.DepartmentID == departmentID {
			return org.ErrDepartmentInUse
		}
	}
	for _, child := range s.departments {
		if child.ParentID == departmentID {
			return org.ErrDepartmentInUse
		}
	}
	delete(s.departments, departmentID)
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (org.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[employeeID]
	if !ok || e.TenantID != tenantID {
		return org.Employee{}, org.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, filter org.EmployeeFilter) ([]org.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := toSet(filter.IDs)
	departments := toSet(filter.DepartmentIDs)
	all := sortedValues(s.employees, func(a, b org.Employee) bool { return a.FullName+a.ID < b.FullName+b.ID })
	out := []org.Employee{}
	for _, e := range all {
		if e.TenantID != tenantID {
			continue
		}
		if filter.ActiveOnly && !e.Active() {
			continue
		}
		if ids != nil && !ids[e.ID] {
			continue
		}
		if departments != nil && !departments[e.DepartmentID] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) UpdateEmployeePlacement(ctx context.Context, tenantID, employeeID, departmentID, managerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[employeeID]
	if !ok || e.TenantID != tenantID {
		return org.ErrNotFound
	}
	e.DepartmentID = departmentID
	e.ManagerID = managerID
	s.employees[employeeID] = e
	return nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
