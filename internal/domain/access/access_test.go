package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
)

type staticTree map[string][]string

func (s staticTree) Descendants(ctx context.Context, tenantID, nodeID string) ([]string, error) {
	if nodeID == "broken" {
		return nil, errors.New("tree unavailable")
	}
	return s[nodeID], nil
}

var tree = staticTree{"sales": {"sales-north", "sales-south"}}

func TestBuildRequiresTenant(t *testing.T) {
	b := NewBuilder(tree)
	_, err := b.Build(context.Background(), Scope{Role: auth.RoleHRAdmin}, ContextResults, Options{})
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestBuildCompanyScopeIsTenantOnly(t *testing.T) {
	b := NewBuilder(tree)
	f, err := b.Build(context.Background(), Scope{TenantID: "t1", Role: auth.RoleHRAdmin}, ContextResults, Options{})
	require.NoError(t, err)
	assert.True(t, f.Matches("t1", "anything"))
	assert.False(t, f.Matches("t2", "anything"))

	clause, args := f.Where("e.tenant_id", "e.department_id", nil)
	assert.Equal(t, "e.tenant_id = $1", clause)
	assert.Equal(t, []any{"t1"}, args)
}

func TestBuildDepartmentScopeRestrictsToSubtree(t *testing.T) {
	b := NewBuilder(tree)
	scope := Scope{TenantID: "t1", Role: auth.RoleAreaManager, DepartmentID: "sales"}
	f, err := b.Build(context.Background(), scope, ContextResults, Options{})
	require.NoError(t, err)

	assert.True(t, f.Matches("t1", "sales"))
	assert.True(t, f.Matches("t1", "sales-south"))
	assert.False(t, f.Matches("t1", "finance"))
	assert.False(t, f.Matches("t2", "sales"))

	clause, args := f.Where("tenant_id", "department_id", []any{"cycle"})
	assert.Equal(t, "tenant_id = $2 AND department_id::text = ANY($3)", clause)
	assert.Equal(t, []any{"cycle", "t1", []string{"sales", "sales-north", "sales-south"}}, args)
}

func TestBuildDepartmentScopeSkippedForParticipationAndCompanyWide(t *testing.T) {
	b := NewBuilder(tree)
	scope := Scope{TenantID: "t1", Role: auth.RoleAreaManager, DepartmentID: "sales"}

	f, err := b.Build(context.Background(), scope, ContextParticipation, Options{})
	require.NoError(t, err)
	assert.True(t, f.Matches("t1", "finance"))

	f, err = b.Build(context.Background(), scope, ContextResults, Options{CompanyWide: true})
	require.NoError(t, err)
	assert.True(t, f.Matches("t1", "finance"))
}

func TestBuildUnknownRoleMatchesNothing(t *testing.T) {
	b := NewBuilder(tree)
	for _, role := range []string{"", "contractor", "root"} {
		f, err := b.Build(context.Background(), Scope{TenantID: "t1", Role: role}, ContextAdministrative, Options{CompanyWide: true})
		require.NoError(t, err)
		assert.True(t, f.DenyAll(), role)
		assert.False(t, f.Matches("t1", ""), role)
		clause, args := f.Where("tenant_id", "department_id", nil)
		assert.Equal(t, "FALSE", clause)
		assert.Empty(t, args)
	}
}

func TestBuildEmployeeOnlySeesParticipation(t *testing.T) {
	b := NewBuilder(tree)
	scope := Scope{TenantID: "t1", Role: auth.RoleEmployee}

	f, err := b.Build(context.Background(), scope, ContextParticipation, Options{})
	require.NoError(t, err)
	assert.False(t, f.DenyAll())

	f, err = b.Build(context.Background(), scope, ContextResults, Options{})
	require.NoError(t, err)
	assert.True(t, f.DenyAll())
}

func TestBuildDepartmentRoleWithoutDepartmentDenies(t *testing.T) {
	b := NewBuilder(tree)
	f, err := b.Build(context.Background(), Scope{TenantID: "t1", Role: auth.RoleAreaManager}, ContextResults, Options{})
	require.NoError(t, err)
	assert.True(t, f.DenyAll())
}

func TestBuildFailsClosedOnResolverError(t *testing.T) {
	b := NewBuilder(tree)
	_, err := b.Build(context.Background(), Scope{TenantID: "t1", Role: auth.RoleAreaManager, DepartmentID: "broken"}, ContextResults, Options{})
	assert.Error(t, err)
}

func TestAuthorizeDepartmentIgnoresCompanyWide(t *testing.T) {
	b := NewBuilder(tree)
	ctx := context.Background()
	area := Scope{TenantID: "t1", Role: auth.RoleAreaManager, DepartmentID: "sales"}

	assert.NoError(t, b.AuthorizeDepartment(ctx, area, "sales-north"))
	assert.ErrorIs(t, b.AuthorizeDepartment(ctx, area, "finance"), ErrForbidden)
	assert.NoError(t, b.AuthorizeDepartment(ctx, Scope{TenantID: "t1", Role: auth.RoleCEO}, "finance"))
	assert.ErrorIs(t, b.AuthorizeDepartment(ctx, Scope{TenantID: "t1", Role: auth.RoleEmployee}, "sales"), ErrForbidden)
	assert.ErrorIs(t, b.AuthorizeDepartment(ctx, Scope{Role: auth.RoleCEO}, "sales"), ErrMissingTenant)
}

func TestZeroFilterDenies(t *testing.T) {
	var f Filter
	assert.True(t, f.DenyAll())
	assert.False(t, f.Matches("", ""))
}
