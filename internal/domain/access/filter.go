package access

import (
	"fmt"
	"sort"
)

// Filter is the security predicate. The zero value denies everything.
type Filter struct {
	tenantID    string
	departments map[string]struct{}
	restricted  bool
	deny        bool
}

// Internal is the tenant-only filter for flows with no caller, such as
// transition handlers and scheduled jobs.
func Internal(tenantID string) Filter {
	return tenantOnly(tenantID)
}

// ForDepartments restricts to the given departments. Callers authorize the
// departments first.
func ForDepartments(tenantID string, departmentIDs []string) Filter {
	return withDepartments(tenantID, departmentIDs)
}

func tenantOnly(tenantID string) Filter {
	return Filter{tenantID: tenantID}
}

func denyAll(tenantID string) Filter {
	return Filter{tenantID: tenantID, deny: true}
}

func withDepartments(tenantID string, ids []string) Filter {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return Filter{tenantID: tenantID, departments: set, restricted: true}
}

func (f Filter) TenantID() string {
	return f.tenantID
}

func (f Filter) DenyAll() bool {
	return f.deny || f.tenantID == ""
}

// DepartmentRestricted reports whether the department level applies.
func (f Filter) DepartmentRestricted() bool {
	return f.restricted
}

func (f Filter) DepartmentIDs() []string {
	if !f.restricted {
		return nil
	}
	out := make([]string, 0, len(f.departments))
	for id := range f.departments {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (f Filter) Matches(tenantID, departmentID string) bool {
	if f.DenyAll() || tenantID != f.tenantID {
		return false
	}
	if !f.restricted {
		return true
	}
	_, ok := f.departments[departmentID]
	return ok
}

// Where renders the predicate as SQL, appending its arguments to args.
func (f Filter) Where(tenantCol, departmentCol string, args []any) (string, []any) {
	if f.DenyAll() {
		return "FALSE", args
	}
	args = append(args, f.tenantID)
	clause := fmt.Sprintf("%s = $%d", tenantCol, len(args))
	if f.restricted {
		args = append(args, f.DepartmentIDs())
		clause += fmt.Sprintf(" AND %s::text = ANY($%d)", departmentCol, len(args))
	}
	return clause, args
}
