// Package access builds the two-level security predicate applied to every
// query: tenant equality first, then the caller's department subtree.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
)

type Context string

const (
	ContextParticipation  Context = "participation"
	ContextResults        Context = "results"
	ContextAdministrative Context = "administrative"
)

var (
	ErrMissingTenant = errors.New("access: tenant scope missing")
	ErrForbidden     = errors.New("access: forbidden")
)

// Scope is the verified caller identity.
type Scope struct {
	TenantID     string
	Role         string
	DepartmentID string
	EmployeeID   string
	UserEmail    string
}

func ScopeFromUser(user auth.UserContext) Scope {
	return Scope{
		TenantID:     user.TenantID,
		Role:         user.RoleName,
		DepartmentID: user.DepartmentID,
		EmployeeID:   user.EmployeeID,
		UserEmail:    user.Email,
	}
}

type Options struct {
	// CompanyWide skips the department level for cross-department ranking views.
	CompanyWide bool
}

// SubtreeResolver returns a department's descendants.
type SubtreeResolver interface {
	Descendants(ctx context.Context, tenantID, nodeID string) ([]string, error)
}

type Builder struct {
	departments SubtreeResolver
}

func NewBuilder(departments SubtreeResolver) *Builder {
	return &Builder{departments: departments}
}

func (b *Builder) Build(ctx context.Context, scope Scope, opCtx Context, opts Options) (Filter, error) {
	if scope.TenantID == "" {
		return Filter{}, ErrMissingTenant
	}

	switch {
	case auth.HasPermission(scope.Role, auth.PermScopeCompany):
		return tenantOnly(scope.TenantID), nil
	case auth.HasPermission(scope.Role, auth.PermScopeDepartment):
		if opCtx == ContextParticipation || opts.CompanyWide {
			return tenantOnly(scope.TenantID), nil
		}
		if scope.DepartmentID == "" {
			return denyAll(scope.TenantID), nil
		}
		subtree, err := b.subtree(ctx, scope)
		if err != nil {
			return Filter{}, err
		}
		return withDepartments(scope.TenantID, subtree), nil
	case opCtx == ContextParticipation && auth.HasPermission(scope.Role, auth.PermParticipate):
		return tenantOnly(scope.TenantID), nil
	default:
		return denyAll(scope.TenantID), nil
	}
}

// AuthorizeDepartment guards drill-down into, or mutation of, one specific
// department. The department level is always checked, whatever the view mode.
func (b *Builder) AuthorizeDepartment(ctx context.Context, scope Scope, departmentID string) error {
	if scope.TenantID == "" {
		return ErrMissingTenant
	}
	if auth.HasPermission(scope.Role, auth.PermScopeCompany) {
		return nil
	}
	if !auth.HasPermission(scope.Role, auth.PermScopeDepartment) || scope.DepartmentID == "" || departmentID == "" {
		return fmt.Errorf("%w: department %s", ErrForbidden, departmentID)
	}
	subtree, err := b.subtree(ctx, scope)
	if err != nil {
		return err
	}
	if !withDepartments(scope.TenantID, subtree).Matches(scope.TenantID, departmentID) {
		return fmt.Errorf("%w: department %s outside caller subtree", ErrForbidden, departmentID)
	}
	return nil
}

// Require fails unless role grants permission.
func Require(scope Scope, permission string) error {
	if scope.TenantID == "" {
		return ErrMissingTenant
	}
	if !auth.HasPermission(scope.Role, permission) {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, scope.Role, permission)
	}
	return nil
}

func (b *Builder) subtree(ctx context.Context, scope Scope) ([]string, error) {
	descendants, err := b.departments.Descendants(ctx, scope.TenantID, scope.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve department subtree: %w", err)
	}
	return append([]string{scope.DepartmentID}, descendants...), nil
}
