package org

import "context"

type StoreAPI interface {
	DepartmentEdges(ctx context.Context, tenantID string) ([]Edge, error)
	ReportingEdges(ctx context.Context, tenantID string) ([]Edge, error)
	GetDepartment(ctx context.Context, tenantID, departmentID string) (Department, error)
	ListDepartments(ctx context.Context, tenantID string) ([]Department, error)
	CreateDepartment(ctx context.Context, tenantID string, dept Department) (string, error)
	UpdateDepartmentParent(ctx context.Context, tenantID, departmentID, parentID string, level int) error
	DeleteDepartment(ctx context.Context, tenantID, departmentID string) error
	GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error)
	ListEmployees(ctx context.Context, tenantID string, filter EmployeeFilter) ([]Employee, error)
	UpdateEmployeePlacement(ctx context.Context, tenantID, employeeID, departmentID, managerID string) error
}
