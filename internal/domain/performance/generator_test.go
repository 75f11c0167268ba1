package performance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

func scheduled(c performance.Cycle) performance.Cycle {
	c.ID = "c1"
	c.TenantID = tenant
	c.Status = performance.CycleStatusScheduled
	return c
}

func countByType(t *testing.T, f fixture, cycleID string) map[string]int {
	t.Helper()
	all, err := f.store.ListAssignments(context.Background(), tenant, performance.AssignmentQuery{CycleID: cycleID, Filter: access.Internal(tenant)})
	require.NoError(t, err)
	out := map[string]int{}
	for _, a := range all {
		out[a.Type]++
	}
	return out
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{}).WithObserver(obs)
	cycle := scheduled(fullCycle())

	res, err := gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	assert.Equal(t, performance.BatchResult{Created: 20}, res)
	assert.Equal(t, map[string]int{
		performance.AssignmentTypeSelf:              6,
		performance.AssignmentTypeManagerToEmployee: 4,
		performance.AssignmentTypeEmployeeToManager: 4,
		performance.AssignmentTypePeer:              6,
	}, countByType(t, f, cycle.ID))

	res, err = gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	assert.Equal(t, performance.BatchResult{Skipped: 20}, res)

	require.Len(t, obs.batches, 2)
	assert.Equal(t, batchCall{"generate_all", 0, 20, 0}, obs.batches[1])
}

func TestGenerateUpwardNeedsMinimumReports(t *testing.T) {
	f := newFixture(t)
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{})
	cycle := scheduled(fullCycle())
	cycle.MinSubordinates = 5

	_, err := gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	assert.Zero(t, countByType(t, f, cycle.ID)[performance.AssignmentTypeEmployeeToManager])
}

func TestGenerateRespectsDepartmentScope(t *testing.T) {
	f := newFixture(t)
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{})
	cycle := scheduled(fullCycle())
	cycle.DepartmentIDs = []string{"sales"}

	res, err := gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	// everyone but fin: sales-north is part of the sales subtree
	assert.Equal(t, 19, res.Created)

	_, err = gen.GenerateForEmployee(context.Background(), cycle, "fin")
	assert.ErrorIs(t, err, performance.ErrNotInScope)
}

func TestGenerateRefusesClosedCycle(t *testing.T) {
	f := newFixture(t)
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{})
	cycle := scheduled(fullCycle())
	cycle.Status = performance.CycleStatusDraft

	_, err := gen.Generate(context.Background(), cycle)
	assert.ErrorIs(t, err, performance.ErrCycleNotOpen)
}

func TestGenerateIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.store.AddEmployee(org.Employee{ID: "nod", TenantID: tenant, FullName: "nod"})
	boom := errors.New("write failed")
	f.store.FailAssignment = func(k performance.AssignmentKey) error {
		if k.EvaluateeID == "ana" && k.EvaluatorID == "ben" {
			return boom
		}
		return nil
	}
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{})
	cycle := scheduled(fullCycle())

	res, err := gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	assert.Equal(t, 19, res.Created)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "ana", res.Errors[0].EmployeeID)
	assert.Equal(t, performance.AssignmentTypePeer+":ben", res.Errors[0].Item)
	assert.Equal(t, "nod", res.Errors[1].EmployeeID)
	assert.Equal(t, performance.ErrMissingDepartment.Error(), res.Errors[1].Message)

	f.store.FailAssignment = nil
	res, err = gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 19, res.Skipped)
	assert.Equal(t, 1, res.Failed)
}

func TestGenerateForEmployee(t *testing.T) {
	f := newFixture(t)
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{})
	cycle := scheduled(fullCycle())

	res, err := gen.GenerateForEmployee(context.Background(), cycle, "boss")
	require.NoError(t, err)
	// self plus four upward evaluations
	assert.Equal(t, 5, res.Created)

	_, err = gen.GenerateForEmployee(context.Background(), cycle, "old")
	assert.ErrorIs(t, err, performance.ErrNotInScope)
	_, err = gen.GenerateForEmployee(context.Background(), cycle, "zed")
	assert.ErrorIs(t, err, performance.ErrNotInScope)
}

func TestPeerPolicyRotates(t *testing.T) {
	f := newFixture(t)
	gen := performance.NewGenerator(f.store, f.org, performance.PeerPolicy{})
	cycle := scheduled(fullCycle())
	cycle.IncludesSelf, cycle.IncludesManager, cycle.IncludesUpward = false, false, false
	cycle.MaxPeers = 1

	_, err := gen.Generate(context.Background(), cycle)
	require.NoError(t, err)
	all, err := f.store.ListAssignments(context.Background(), tenant, performance.AssignmentQuery{CycleID: cycle.ID, Filter: access.Internal(tenant)})
	require.NoError(t, err)
	got := map[string]string{}
	for _, a := range all {
		got[a.EvaluateeID] = a.EvaluatorID
	}
	assert.Equal(t, map[string]string{"ana": "ben", "ben": "cai", "cai": "ben"}, got)
}

func TestPeerPolicyExcludesManagerAndReports(t *testing.T) {
	emp := org.Employee{ID: "m", ManagerID: "top", Status: org.EmployeeStatusActive}
	dept := []org.Employee{
		emp,
		{ID: "top", Status: org.EmployeeStatusActive},
		{ID: "r1", ManagerID: "m", Status: org.EmployeeStatusActive},
		{ID: "p1", Status: org.EmployeeStatusActive},
		{ID: "p2", Status: org.EmployeeStatusInactive},
	}
	peers := performance.PeerPolicy{MaxPeers: 3}.Select(emp, dept, map[string]bool{"r1": true})
	require.Len(t, peers, 1)
	assert.Equal(t, "p1", peers[0].ID)

	assert.Empty(t, performance.PeerPolicy{}.Select(emp, []org.Employee{emp}, nil))
}
