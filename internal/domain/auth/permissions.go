package auth

import "strings"

const (
	RoleAccountOwner = "account_owner"
	RoleHRAdmin      = "hr_admin"
	RoleHRManager    = "hr_manager"
	RoleCEO          = "ceo"
	RoleAreaManager  = "area_manager"
	RoleManager      = "manager"
	RoleEmployee     = "employee"
)

// Capabilities are checked through HasPermission; call sites never compare role names.
const (
	PermScopeCompany        = "scope.company"
	PermScopeDepartment     = "scope.department"
	PermParticipate         = "performance.participate"
	PermCyclesRead          = "performance.cycles.read"
	PermCyclesManage        = "performance.cycles.manage"
	PermAssignmentsGenerate = "performance.assignments.generate"
	PermResultsRead         = "performance.results.read"
	PermPotentialWrite      = "performance.potential.write"
	PermRatingsRatify       = "performance.ratings.ratify"
	PermCalibrationRead     = "calibration.read"
	PermCalibrationManage   = "calibration.manage"
	PermOrgWrite            = "org.write"
	PermAuditRead           = "audit.read"
)

var adminPermissions = []string{
	PermScopeCompany,
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

var RolePermissions = map[string][]string{
	RoleAccountOwner: adminPermissions,
	RoleHRAdmin:      adminPermissions,
	RoleHRManager: {
		PermScopeCompany,
		PermParticipate,
		PermCyclesRead,
		PermResultsRead,
		PermPotentialWrite,
		PermCalibrationRead,
		PermCalibrationManage,
	},
	RoleCEO: {
		PermScopeCompany,
		PermParticipate,
		PermCyclesRead,
		PermResultsRead,
		PermCalibrationRead,
	},
	RoleAreaManager: {
		PermScopeDepartment,
		PermParticipate,
		PermCyclesRead,
		PermResultsRead,
		PermCalibrationRead,
	},
	RoleManager: {
		PermParticipate,
		PermCyclesRead,
	},
	RoleEmployee: {
		PermParticipate,
	},
}

var permissionIndex = buildIndex(RolePermissions)

func buildIndex(table map[string][]string) map[string]map[string]struct{} {
	index := make(map[string]map[string]struct{}, len(table))
	for role, perms := range table {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		index[role] = set
	}
	return index
}

// NormalizeRole maps external role spellings ("HR_ADMIN", "Area Manager") onto the table keys.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	role = strings.ReplaceAll(role, " ", "_")
	return strings.ReplaceAll(role, "-", "_")
}

// HasPermission reports whether role grants permission. Unknown roles grant nothing.
func HasPermission(role, permission string) bool {
	perms, ok := permissionIndex[NormalizeRole(role)]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

// KnownRole reports whether role has an entry in the permission table.
func KnownRole(role string) bool {
	_, ok := permissionIndex[NormalizeRole(role)]
	return ok
}
