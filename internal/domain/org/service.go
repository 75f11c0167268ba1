package org

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/cache"
)

type Service struct {
	store       StoreAPI
	Departments *Resolver
	Reporting   *Resolver
}

func NewService(store StoreAPI, cacheStore cache.Store, maxDepth int) *Service {
	return &Service{
		store:       store,
		Departments: NewResolver(KindDepartment, EdgeSourceFunc(store.DepartmentEdges), cacheStore, maxDepth),
		Reporting:   NewResolver(KindReporting, EdgeSourceFunc(store.ReportingEdges), cacheStore, maxDepth),
	}
}

func (s *Service) WithObserver(observer CacheObserver) *Service {
	s.Departments.WithObserver(observer)
	s.Reporting.WithObserver(observer)
	return s
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, tenantID, employeeID)
}

func (s *Service) ListEmployees(ctx context.Context, tenantID string, filter EmployeeFilter) ([]Employee, error) {
	return s.store.ListEmployees(ctx, tenantID, filter)
}

func (s *Service) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	return s.store.ListDepartments(ctx, tenantID)
}

// DepartmentSubtree returns departmentID and its descendants.
func (s *Service) DepartmentSubtree(ctx context.Context, tenantID, departmentID string) ([]string, error) {
	return s.Departments.Subtree(ctx, tenantID, departmentID)
}

// IsDirectManager reports whether managerID is the manager of record of employeeID.
func (s *Service) IsDirectManager(ctx context.Context, tenantID, managerID, employeeID string) (bool, error) {
	if managerID == "" || employeeID == "" {
		return false, nil
	}
	emp, err := s.store.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return false, err
	}
	return emp.ManagerID == managerID, nil
}

func (s *Service) CreateDepartment(ctx context.Context, tenantID string, dept Department) (string, error) {
	if tenantID == "" {
		return "", ErrMissingTenant
	}
	dept.Level = DepartmentLevelUnit
	if dept.ParentID != "" {
		parent, err := s.store.GetDepartment(ctx, tenantID, dept.ParentID)
		if err != nil {
			return "", fmt.Errorf("parent department: %w", err)
		}
		dept.Level = parent.Level + 1
	}
	id, err := s.store.CreateDepartment(ctx, tenantID, dept)
	if err != nil {
		return "", err
	}
	if dept.ParentID != "" {
		s.invalidate(ctx, s.Departments, tenantID, dept.ParentID, nil)
	}
	return id, nil
}

func (s *Service) MoveDepartment(ctx context.Context, tenantID, departmentID, parentID string) error {
	if departmentID == parentID {
		return ErrInvalidParent
	}
	level := DepartmentLevelUnit
	if parentID != "" {
		parent, err := s.store.GetDepartment(ctx, tenantID, parentID)
		if err != nil {
			return fmt.Errorf("parent department: %w", err)
		}
		cyclic, err := s.Departments.CreatesCycle(ctx, tenantID, departmentID, parentID)
		if err != nil {
			return err
		}
		if cyclic {
			return ErrInvalidParent
		}
		level = parent.Level + 1
	}

	before, beforeErr := s.Departments.AffectedRoots(ctx, tenantID, departmentID)
	if err := s.store.UpdateDepartmentParent(ctx, tenantID, departmentID, parentID, level); err != nil {
		return err
	}
	s.invalidate(ctx, s.Departments, tenantID, departmentID, before, beforeErr)
	return nil
}

func (s *Service) DeleteDepartment(ctx context.Context, tenantID, departmentID string) error {
	before, beforeErr := s.Departments.AffectedRoots(ctx, tenantID, departmentID)
	if err := s.store.DeleteDepartment(ctx, tenantID, departmentID); err != nil {
		return err
	}
	s.invalidate(ctx, s.Departments, tenantID, "", before, beforeErr)
	return nil
}

// MoveEmployee changes department and manager in one write; both forests are invalidated.
// A manager who already reports to the employee, at any depth, is rejected.
func (s *Service) MoveEmployee(ctx context.Context, tenantID, employeeID, departmentID, managerID string) error {
	cyclic, err := s.Reporting.CreatesCycle(ctx, tenantID, employeeID, managerID)
	if err != nil {
		return err
	}
	if cyclic {
		return ErrInvalidParent
	}
	before, beforeErr := s.Reporting.AffectedRoots(ctx, tenantID, employeeID)
	if err := s.store.UpdateEmployeePlacement(ctx, tenantID, employeeID, departmentID, managerID); err != nil {
		return err
	}
	s.invalidate(ctx, s.Reporting, tenantID, employeeID, before, beforeErr)
	return nil
}

// invalidate drops the cache roots touched by a structural write: the roots
// recorded before the write plus the ancestors of node after it. Any lookup
// failure falls back to a full purge.
func (s *Service) invalidate(ctx context.Context, r *Resolver, tenantID, node string, before []string, errs ...error) {
	for _, err := range errs {
		if err != nil {
			slog.Warn("hierarchy invalidation lookup failed, purging cache", "kind", r.kind, "tenantId", tenantID, "err", err)
			r.Invalidate(ctx, tenantID)
			return
		}
	}
	roots := append([]string(nil), before...)
	if node != "" {
		after, err := r.AffectedRoots(ctx, tenantID, node)
		if err != nil {
			slog.Warn("hierarchy invalidation lookup failed, purging cache", "kind", r.kind, "tenantId", tenantID, "err", err)
			r.Invalidate(ctx, tenantID)
			return
		}
		roots = append(roots, after...)
	}
	if len(roots) == 0 {
		r.Invalidate(ctx, tenantID)
		return
	}
	r.Invalidate(ctx, tenantID, roots...)
}
