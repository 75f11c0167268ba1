package auth

import "testing"

var allPermissions = []string{
	PermScopeCompany,
	PermScopeDepartment,
	PermParticipate,
	PermCyclesRead,
	PermCyclesManage,
	PermAssignmentsGenerate,
	PermResultsRead,
	PermPotentialWrite,
	PermRatingsRatify,
	PermCalibrationRead,
	PermCalibrationManage,
	PermOrgWrite,
	PermAuditRead,
}

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range allPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range allPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestScopePermissionsAreExclusive(t *testing.T) {
	for role := range RolePermissions {
		if HasPermission(role, PermScopeCompany) && HasPermission(role, PermScopeDepartment) {
			t.Fatalf("role %s holds both company and department scope", role)
		}
	}
}

func TestHasPermissionNormalizesRole(t *testing.T) {
	if !HasPermission("HR_ADMIN", PermCyclesManage) {
		t.Fatal("expected HR_ADMIN to manage cycles")
	}
	if !HasPermission("Area Manager", PermScopeDepartment) {
		t.Fatal("expected area manager to be department scoped")
	}
	if HasPermission("contractor", PermParticipate) {
		t.Fatal("unknown role must not grant permissions")
	}
	if KnownRole("") {
		t.Fatal("empty role must be unknown")
	}
}
