package performance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/cache"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/memstore"
)

const tenant = "t1"

var (
	adminScope     = access.Scope{TenantID: tenant, Role: auth.RoleHRAdmin}
	hrManagerScope = access.Scope{TenantID: tenant, Role: auth.RoleHRManager}
	bossScope      = access.Scope{TenantID: tenant, Role: auth.RoleManager, EmployeeID: "boss"}
	northScope     = access.Scope{TenantID: tenant, Role: auth.RoleAreaManager, DepartmentID: "sales-north", EmployeeID: "dan"}
)

func employeeScope(id string) access.Scope {
	return access.Scope{TenantID: tenant, Role: auth.RoleEmployee, EmployeeID: id}
}

type fixture struct {
	store *memstore.Store
	org   *org.Service
	svc   *performance.Service
}

// newFixture seeds one tenant:
//
//	sales (boss; ana, ben, cai report to boss; old is inactive)
//	  sales-north (dan reports to boss)
//	finance (fin)
//
// plus an employee of another tenant in a department of its own.
func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	store.AddDepartment(org.Department{ID: "sales", TenantID: tenant, Name: "Sales"})
	store.AddDepartment(org.Department{ID: "sales-north", TenantID: tenant, Name: "Sales North", ParentID: "sales"})
	store.AddDepartment(org.Department{ID: "finance", TenantID: tenant, Name: "Finance"})
	store.AddDepartment(org.Department{ID: "other-sales", TenantID: "t2", Name: "Sales"})

	store.AddEmployee(org.Employee{ID: "boss", TenantID: tenant, FullName: "Boss", Email: "boss@example.com", DepartmentID: "sales", PerformanceTrack: org.TrackEjecutivo})
	for _, id := range []string{"ana", "ben", "cai"} {
		store.AddEmployee(org.Employee{ID: id, TenantID: tenant, FullName: id, Email: id + "@example.com", DepartmentID: "sales", ManagerID: "boss"})
	}
	store.AddEmployee(org.Employee{ID: "dan", TenantID: tenant, FullName: "dan", Email: "dan@example.com", DepartmentID: "sales-north", ManagerID: "boss"})
	store.AddEmployee(org.Employee{ID: "fin", TenantID: tenant, FullName: "fin", Email: "fin@example.com", DepartmentID: "finance"})
	store.AddEmployee(org.Employee{ID: "old", TenantID: tenant, FullName: "old", DepartmentID: "sales", ManagerID: "boss", Status: org.EmployeeStatusInactive})
	store.AddEmployee(org.Employee{ID: "zed", TenantID: "t2", FullName: "zed", DepartmentID: "other-sales"})

	orgSvc := org.NewService(store, cache.NewLRU(cache.DefaultSize, cache.DefaultTTL), org.DefaultMaxDepth)
	svc := performance.NewService(store, orgSvc, access.NewBuilder(orgSvc.Departments), performance.Weights{})
	return fixture{store: store, org: orgSvc, svc: svc}
}

func fullCycle() performance.Cycle {
	start := time.Now().Add(-time.Hour)
	return performance.Cycle{
		Name:            "2026 H2",
		StartDate:       start,
		EndDate:         start.Add(30 * 24 * time.Hour),
		IncludesSelf:    true,
		IncludesManager: true,
		IncludesPeer:    true,
		IncludesUpward:  true,
		MinSubordinates: 2,
		MaxPeers:        3,
	}
}

// createCycle creates a cycle and walks it forward through statuses.
func (f fixture) createCycle(t *testing.T, in performance.Cycle, statuses ...string) performance.Cycle {
	t.Helper()
	ctx := context.Background()
	cycle, err := f.svc.CreateCycle(ctx, adminScope, in)
	require.NoError(t, err)
	for _, to := range statuses {
		res, err := f.svc.Transition(ctx, adminScope, cycle.ID, to)
		require.NoError(t, err)
		require.Empty(t, res.Warnings, "transition to %s", to)
		cycle = res.Cycle
	}
	return cycle
}

type recordingAnnouncer struct {
	messages []notifications.Message
}

func (a *recordingAnnouncer) Dispatch(ctx context.Context, messages []notifications.Message) notifications.Report {
	a.messages = append(a.messages, messages...)
	return notifications.Report{Sent: len(messages)}
}

func (a *recordingAnnouncer) byTemplate(templateID string) []notifications.Message {
	var out []notifications.Message
	for _, m := range a.messages {
		if m.TemplateID == templateID {
			out = append(out, m)
		}
	}
	return out
}

type batchCall struct {
	op                       string
	created, skipped, failed int
}

type recordingObserver struct {
	batches     []batchCall
	transitions []string
}

func (o *recordingObserver) Batch(op string, created, skipped, failed int) {
	o.batches = append(o.batches, batchCall{op, created, skipped, failed})
}

func (o *recordingObserver) Transition(from, to string) {
	o.transitions = append(o.transitions, from+"->"+to)
}
