package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const employeeColumns = `id, tenant_id, COALESCE(user_id::text, ''), email, full_name,
           COALESCE(department_id::text, ''), COALESCE(manager_id::text, ''), COALESCE(position, ''),
           standard_job_level, COALESCE(performance_track, ''), status, created_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.TenantID, &emp.UserID, &emp.Email, &emp.FullName,
		&emp.DepartmentID, &emp.ManagerID, &emp.Position,
		&emp.StandardJobLevel, &emp.PerformanceTrack, &emp.Status, &emp.CreatedAt)
	return emp, err
}

func (s *Store) DepartmentEdges(ctx context.Context, tenantID string) ([]Edge, error) {
	return s.edges(ctx, `SELECT id, COALESCE(parent_id::text, '') FROM departments WHERE tenant_id = $1`, tenantID)
}

func (s *Store) ReportingEdges(ctx context.Context, tenantID string) ([]Edge, error) {
	return s.edges(ctx, `SELECT id, COALESCE(manager_id::text, '') FROM employees WHERE tenant_id = $1 AND status = 'active'`, tenantID)
}

func (s *Store) edges(ctx context.Context, query, tenantID string) ([]Edge, error) {
	rows, err := s.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.ParentID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, tenantID, departmentID string) (Department, error) {
	var d Department
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, name, COALESCE(parent_id::text, ''), level, created_at
    FROM departments
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, departmentID).Scan(&d.ID, &d.TenantID, &d.Name, &d.ParentID, &d.Level, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, ErrNotFound
	}
	return d, err
}

func (s *Store) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, name, COALESCE(parent_id::text, ''), level, created_at
    FROM departments
    WHERE tenant_id = $1
    ORDER BY level, name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Name, &d.ParentID, &d.Level, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, tenantID string, dept Department) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (tenant_id, name, parent_id, level)
    VALUES ($1, $2, NULLIF($3, '')::uuid, $4)
    RETURNING id
  `, tenantID, dept.Name, dept.ParentID, dept.Level).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateDepartmentParent(ctx context.Context, tenantID, departmentID, parentID string, level int) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE departments
    SET parent_id = NULLIF($1, '')::uuid, level = $2
    WHERE tenant_id = $3 AND id = $4
  `, parentID, level, tenantID, departmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, tenantID, departmentID string) error {
	var inUse int
	if err := s.DB.QueryRow(ctx, `
    SELECT (SELECT COUNT(1) FROM employees WHERE tenant_id = $1 AND department_id = $2)
         + (SELECT COUNT(1) FROM departments WHERE tenant_id = $1 AND parent_id = $2)
  `, tenantID, departmentID).Scan(&inUse); err != nil {
		return err
	}
	if inUse > 0 {
		return ErrDepartmentInUse
	}
	tag, err := s.DB.Exec(ctx, `DELETE FROM departments WHERE tenant_id = $1 AND id = $2`, tenantID, departmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE tenant_id = $1 AND id = $2`, tenantID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, filter EmployeeFilter) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.ActiveOnly {
		query += " AND status = 'active'"
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		query += fmt.Sprintf(" AND id::text = ANY($%d)", len(args))
	}
	if len(filter.DepartmentIDs) > 0 {
		args = append(args, filter.DepartmentIDs)
		query += fmt.Sprintf(" AND department_id::text = ANY($%d)", len(args))
	}
	query += " ORDER BY id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEmployeePlacement(ctx context.Context, tenantID, employeeID, departmentID, managerID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET department_id = NULLIF($1, '')::uuid, manager_id = NULLIF($2, '')::uuid, updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, departmentID, managerID, tenantID, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
