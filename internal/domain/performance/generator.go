package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
)

// PeerPolicy picks peer evaluators from the evaluatee's department.
type PeerPolicy struct {
	MaxPeers int
}

// Select returns up to MaxPeers colleagues of emp, excluding emp, its manager
// and its direct reports. The start offset rotates with emp's position in the
// department so evaluation load spreads deterministically.
func (p PeerPolicy) Select(emp org.Employee, department []org.Employee, directReports map[string]bool) []org.Employee {
	limit := p.MaxPeers
	if limit <= 0 {
		limit = DefaultMaxPeers
	}
	members := append([]org.Employee(nil), department...)
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	offset := 0
	candidates := make([]org.Employee, 0, len(members))
	for i, m := range members {
		if m.ID == emp.ID {
			offset = i
			continue
		}
		if m.ID == emp.ManagerID || directReports[m.ID] || !m.Active() {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return nil
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]org.Employee, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, candidates[(offset+i)%len(candidates)])
	}
	return out
}

type BatchObserver interface {
	Batch(operation string, created, skipped, failed int)
}

type Generator struct {
	store     StoreAPI
	directory Directory
	policy    PeerPolicy
	observer  BatchObserver
}

func NewGenerator(store StoreAPI, directory Directory, policy PeerPolicy) *Generator {
	return &Generator{store: store, directory: directory, policy: policy}
}

func (g *Generator) WithObserver(observer BatchObserver) *Generator {
	g.observer = observer
	return g
}

// roster is the tenant's active workforce indexed for one generation run.
type roster struct {
	byID         map[string]org.Employee
	reports      map[string][]org.Employee
	byDepartment map[string][]org.Employee
	inScope      []org.Employee
}

func (g *Generator) loadRoster(ctx context.Context, cycle Cycle) (roster, error) {
	employees, err := g.directory.ListEmployees(ctx, cycle.TenantID, org.EmployeeFilter{ActiveOnly: true})
	if err != nil {
		return roster{}, fmt.Errorf("list employees: %w", err)
	}
	r := roster{
		byID:         make(map[string]org.Employee, len(employees)),
		reports:      map[string][]org.Employee{},
		byDepartment: map[string][]org.Employee{},
	}
	for _, e := range employees {
		if !e.Active() {
			continue
		}
		r.byID[e.ID] = e
		if e.ManagerID != "" {
			r.reports[e.ManagerID] = append(r.reports[e.ManagerID], e)
		}
		if e.DepartmentID != "" {
			r.byDepartment[e.DepartmentID] = append(r.byDepartment[e.DepartmentID], e)
		}
	}

	var scope map[string]bool
	if len(cycle.DepartmentIDs) > 0 {
		scope = map[string]bool{}
		for _, id := range cycle.DepartmentIDs {
			subtree, err := g.directory.DepartmentSubtree(ctx, cycle.TenantID, id)
			if err != nil {
				return roster{}, fmt.Errorf("resolve cycle scope: %w", err)
			}
			for _, d := range subtree {
				scope[d] = true
			}
		}
	}
	for _, e := range r.byID {
		if scope == nil || scope[e.DepartmentID] {
			r.inScope = append(r.inScope, e)
		}
	}
	sort.Slice(r.inScope, func(i, j int) bool { return r.inScope[i].ID < r.inScope[j].ID })
	return r, nil
}

// Generate creates every assignment the cycle configuration calls for.
// Existing assignments are skipped, so repeated runs converge.
func (g *Generator) Generate(ctx context.Context, cycle Cycle) (BatchResult, error) {
	if err := checkOpen(cycle); err != nil {
		return BatchResult{}, err
	}
	r, err := g.loadRoster(ctx, cycle)
	if err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	for _, emp := range r.inScope {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		g.generateFor(ctx, cycle, r, emp, &result)
	}
	g.report("generate_all", result)
	return result, nil
}

// GenerateForEmployee runs generation for a single evaluatee.
func (g *Generator) GenerateForEmployee(ctx context.Context, cycle Cycle, employeeID string) (BatchResult, error) {
	if err := checkOpen(cycle); err != nil {
		return BatchResult{}, err
	}
	r, err := g.loadRoster(ctx, cycle)
	if err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	for _, emp := range r.inScope {
		if emp.ID == employeeID {
			g.generateFor(ctx, cycle, r, emp, &result)
			g.report("generate_single", result)
			return result, nil
		}
	}
	return BatchResult{}, fmt.Errorf("%w: %s", ErrNotInScope, employeeID)
}

func (g *Generator) generateFor(ctx context.Context, cycle Cycle, r roster, emp org.Employee, result *BatchResult) {
	keys, err := g.plan(cycle, r, emp)
	if err != nil {
		result.fail(emp.ID, "", err)
		return
	}
	due := cycle.EndDate
	if due.IsZero() {
		due = time.Now().Add(DefaultDueWindow)
	}
	for _, key := range keys {
		created, err := g.ensure(ctx, cycle.TenantID, key, due)
		switch {
		case err != nil:
			result.fail(emp.ID, key.Type+":"+key.EvaluatorID, err)
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}
}

// plan lists the assignment tuples where emp is the evaluatee.
func (g *Generator) plan(cycle Cycle, r roster, emp org.Employee) ([]AssignmentKey, error) {
	if cycle.IncludesPeer && emp.DepartmentID == "" {
		return nil, ErrMissingDepartment
	}
	key := func(evaluatorID, typ string) AssignmentKey {
		return AssignmentKey{CycleID: cycle.ID, EvaluatorID: evaluatorID, EvaluateeID: emp.ID, Type: typ}
	}

	var keys []AssignmentKey
	if cycle.IncludesSelf {
		keys = append(keys, key(emp.ID, AssignmentTypeSelf))
	}
	if cycle.IncludesManager && emp.ManagerID != "" {
		if _, ok := r.byID[emp.ManagerID]; ok {
			keys = append(keys, key(emp.ManagerID, AssignmentTypeManagerToEmployee))
		}
	}
	reports := r.reports[emp.ID]
	if cycle.IncludesUpward {
		minSubs := cycle.MinSubordinates
		if minSubs < DefaultMinSubordinates {
			minSubs = DefaultMinSubordinates
		}
		if len(reports) >= minSubs {
			for _, sub := range reports {
				keys = append(keys, key(sub.ID, AssignmentTypeEmployeeToManager))
			}
		}
	}
	if cycle.IncludesPeer {
		direct := make(map[string]bool, len(reports))
		for _, sub := range reports {
			direct[sub.ID] = true
		}
		policy := g.policy
		if cycle.MaxPeers > 0 {
			policy.MaxPeers = cycle.MaxPeers
		}
		for _, peer := range policy.Select(emp, r.byDepartment[emp.DepartmentID], direct) {
			keys = append(keys, key(peer.ID, AssignmentTypePeer))
		}
	}
	return keys, nil
}

func (g *Generator) ensure(ctx context.Context, tenantID string, key AssignmentKey, due time.Time) (bool, error) {
	exists, err := g.store.AssignmentExists(ctx, tenantID, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = g.store.CreateAssignment(ctx, tenantID, Assignment{
		TenantID:    tenantID,
		CycleID:     key.CycleID,
		EvaluatorID: key.EvaluatorID,
		EvaluateeID: key.EvaluateeID,
		Type:        key.Type,
		Status:      AssignmentStatusPending,
		DueDate:     due,
	})
	if errors.Is(err, ErrDuplicate) {
		// lost the race against a concurrent run
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *Generator) report(operation string, result BatchResult) {
	if result.Failed > 0 {
		slog.Warn("assignment generation finished with failures", "operation", operation, "created", result.Created, "skipped", result.Skipped, "failed", result.Failed)
	}
	if g.observer != nil {
		g.observer.Batch(operation, result.Created, result.Skipped, result.Failed)
	}
}

func checkOpen(cycle Cycle) error {
	switch cycle.Status {
	case CycleStatusScheduled, CycleStatusActive:
		return nil
	default:
		return fmt.Errorf("%w: cycle %s is %s", ErrCycleNotOpen, cycle.ID, cycle.Status)
	}
}
