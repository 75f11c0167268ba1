package calibration

import (
	"fmt"
	"strings"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
)

// Predicate is the resolved candidate rule. It is always conjoined with the
// tenant, with the caller's access filter and with "has a rating in CycleID".
// Nil slices mean no restriction on that field.
type Predicate struct {
	TenantID             string
	CycleID              string
	Access               access.Filter
	DepartmentIDs        []string
	JobLevels            []int
	RequireDirectReports bool
	Positions            []string
	ManagerIDs           []string
	EmployeeIDs          []string
}

// Subject is the in-memory view of one employee the predicate is tested against.
type Subject struct {
	TenantID         string
	EmployeeID       string
	DepartmentID     string
	ManagerID        string
	Position         string
	StandardJobLevel int
	Active           bool
	// HasRating means an aggregated rating exists in the predicate's cycle.
	HasRating        bool
	DirectReports    int
}

func (p Predicate) Matches(s Subject) bool {
	if p.TenantID == "" || s.TenantID != p.TenantID || !s.Active || !s.HasRating {
		return false
	}
	if !p.Access.Matches(s.TenantID, s.DepartmentID) {
		return false
	}
	if p.DepartmentIDs != nil && !containsString(p.DepartmentIDs, s.DepartmentID) {
		return false
	}
	if p.JobLevels != nil && !containsInt(p.JobLevels, s.StandardJobLevel) {
		return false
	}
	if p.RequireDirectReports && s.DirectReports == 0 {
		return false
	}
	if p.Positions != nil && !containsString(p.Positions, normalizePosition(s.Position)) {
		return false
	}
	if p.ManagerIDs != nil && !containsString(p.ManagerIDs, s.ManagerID) {
		return false
	}
	if p.EmployeeIDs != nil && !containsString(p.EmployeeIDs, s.EmployeeID) {
		return false
	}
	return true
}

// Where renders the predicate over employees aliased e. The rating join must
// be provided by the caller as alias r on (r.employee_id = e.id, r.cycle_id).
func (p Predicate) Where(args []any) (string, []any) {
	if p.TenantID == "" {
		return "FALSE", args
	}
	accessClause, args := p.Access.Where("e.tenant_id", "e.department_id", args)
	conds := []string{accessClause}
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}
	add("e.tenant_id = $%d", p.TenantID)
	conds = append(conds, "e.status = 'active'")
	add("r.cycle_id = $%d", p.CycleID)
	conds = append(conds, "r.calculated_score > 0")
	if p.DepartmentIDs != nil {
		add("e.department_id::text = ANY($%d)", p.DepartmentIDs)
	}
	if p.JobLevels != nil {
		add("e.standard_job_level = ANY($%d)", p.JobLevels)
	}
	if p.RequireDirectReports {
		conds = append(conds, "EXISTS (SELECT 1 FROM employees d WHERE d.manager_id = e.id AND d.tenant_id = e.tenant_id AND d.status = 'active')")
	}
	if p.Positions != nil {
		add("lower(trim(e.position)) = ANY($%d)", p.Positions)
	}
	if p.ManagerIDs != nil {
		add("e.manager_id::text = ANY($%d)", p.ManagerIDs)
	}
	if p.EmployeeIDs != nil {
		add("e.id::text = ANY($%d)", p.EmployeeIDs)
	}
	return strings.Join(conds, " AND "), args
}

func normalizePosition(position string) string {
	return strings.ToLower(strings.TrimSpace(position))
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
