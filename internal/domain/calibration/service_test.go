package calibration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/cache"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/memstore"
)

const tenant = "t1"

var (
	hrScope    = access.Scope{TenantID: tenant, Role: auth.RoleHRManager, UserEmail: "hr@example.com"}
	northScope = access.Scope{TenantID: tenant, Role: auth.RoleAreaManager, DepartmentID: "sales-north", EmployeeID: "dan"}
	anaScope   = access.Scope{TenantID: tenant, Role: auth.RoleEmployee, EmployeeID: "ana"}
)

type announcer struct {
	messages []notifications.Message
}

func (a *announcer) Dispatch(ctx context.Context, messages []notifications.Message) notifications.Report {
	a.messages = append(a.messages, messages...)
	return notifications.Report{Sent: len(messages)}
}

type fixture struct {
	store     *memstore.Store
	svc       *calibration.Service
	announcer *announcer
	cycleID   string
}

// newFixture seeds a rated workforce:
//
//	sales: boss (L5, manages ana, ben, cai, dan), ana (L2), ben (L2), cai (L3)
//	sales-north: dan (L3)
//	finance: fin (L2), pot (L2, potential only), new (L2, unrated)
func newFixture(t *testing.T, status string) fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	store.AddDepartment(org.Department{ID: "sales", TenantID: tenant})
	store.AddDepartment(org.Department{ID: "sales-north", TenantID: tenant, ParentID: "sales"})
	store.AddDepartment(org.Department{ID: "finance", TenantID: tenant})

	add := func(id, dept, manager, position string, level int) {
		store.AddEmployee(org.Employee{ID: id, TenantID: tenant, FullName: id, Email: id + "@example.com", DepartmentID: dept, ManagerID: manager, Position: position, StandardJobLevel: level})
	}
	add("boss", "sales", "", "Director", 5)
	add("ana", "sales", "boss", "Sales Rep", 2)
	add("ben", "sales", "boss", " sales rep ", 2)
	add("cai", "sales", "boss", "Account Manager", 3)
	add("dan", "sales-north", "boss", "Sales Rep", 3)
	add("fin", "finance", "", "Analyst", 2)
	add("pot", "finance", "", "Analyst", 2)
	add("new", "finance", "", "Analyst", 2)
	store.AddEmployee(org.Employee{ID: "old", TenantID: tenant, FullName: "old", DepartmentID: "sales", ManagerID: "boss", StandardJobLevel: 2, Status: org.EmployeeStatusInactive})

	cycleID, err := store.CreateCycle(ctx, tenant, performance.Cycle{Name: "2026", Status: status})
	require.NoError(t, err)
	scores := map[string]float64{"boss": 4.5, "ana": 4, "ben": 3, "cai": 3.5, "dan": 2, "fin": 3, "pot": 0, "old": 3}
	for id, score := range scores {
		rate(t, store, cycleID, id, score)
	}

	orgSvc := org.NewService(store, cache.NewLRU(cache.DefaultSize, cache.DefaultTTL), org.DefaultMaxDepth)
	ann := &announcer{}
	svc := calibration.NewService(store, store, orgSvc, access.NewBuilder(orgSvc.Departments), ann)
	return fixture{store: store, svc: svc, announcer: ann, cycleID: cycleID}
}

func rate(t *testing.T, store *memstore.Store, cycleID, employeeID string, score float64) {
	t.Helper()
	ctx := context.Background()
	r, err := store.EnsureRating(ctx, tenant, cycleID, employeeID)
	require.NoError(t, err)
	r.CalculatedScore = score
	r.Recompute()
	require.NoError(t, store.UpdateRating(ctx, tenant, r))
}

func input(cycleID, mode, config string) calibration.CreateSessionInput {
	return calibration.CreateSessionInput{CycleID: cycleID, Name: "Q4 calibration", FilterMode: mode, FilterConfig: json.RawMessage(config)}
}

func ids(candidates []calibration.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.EmployeeID)
	}
	return out
}

func TestPreviewModes(t *testing.T) {
	f := newFixture(t, performance.CycleStatusInReview)
	ctx := context.Background()
	cases := []struct {
		name   string
		mode   string
		config string
		want   []string
	}{
		{"department subtree", calibration.ModeDepartment, `{"departmentIds":["sales"]}`, []string{"ana", "ben", "boss", "cai", "dan"}},
		{"job level", calibration.ModeJobLevel, `{"levels":[2]}`, []string{"ana", "ben", "fin"}},
		{"job level with reports", calibration.ModeJobLevel, `{"levels":[3,5],"onlyWithReports":true}`, []string{"boss"}},
		{"job family", calibration.ModeJobFamily, `{"positions":["SALES REP"]}`, []string{"ana", "ben", "dan"}},
		{"direct reports", calibration.ModeDirectReports, `{"managerIds":["boss"]}`, []string{"ana", "ben", "cai", "dan"}},
		{"custom picks", calibration.ModeCustomPicks, `{"employeeIds":["ana","fin","new","pot"]}`, []string{"ana", "fin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			preview, err := f.svc.PreviewDraft(ctx, hrScope, input(f.cycleID, tc.mode, tc.config))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(preview.Sample))
			assert.Equal(t, len(tc.want), preview.Total)
		})
	}
}

func TestPreviewLegacyDepartments(t *testing.T) {
	f := newFixture(t, performance.CycleStatusActive)
	in := calibration.CreateSessionInput{CycleID: f.cycleID, DepartmentIDs: []string{"sales-north"}}
	preview, err := f.svc.PreviewDraft(context.Background(), hrScope, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"dan"}, ids(preview.Sample))
}

func TestPreviewTotalMatchesCandidates(t *testing.T) {
	f := newFixture(t, performance.CycleStatusInReview)
	ctx := context.Background()
	for i := 1; i <= calibration.PreviewLimit+4; i++ {
		id := fmt.Sprintf("x%02d", i)
		f.store.AddEmployee(org.Employee{ID: id, TenantID: tenant, FullName: id, DepartmentID: "finance", StandardJobLevel: 2})
		rate(t, f.store, f.cycleID, id, 3)
	}

	session, err := f.svc.CreateSession(ctx, hrScope, input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2]}`))
	require.NoError(t, err)
	preview, err := f.svc.PreviewSession(ctx, hrScope, session.ID)
	require.NoError(t, err)
	assert.Len(t, preview.Sample, calibration.PreviewLimit)
	assert.Equal(t, 3+calibration.PreviewLimit+4, preview.Total)

	candidates, err := f.svc.Selector.Candidates(ctx, hrScope, session)
	require.NoError(t, err)
	assert.Len(t, candidates, preview.Total)

	res, err := f.svc.StartSession(ctx, hrScope, session.ID)
	require.NoError(t, err)
	assert.Equal(t, preview.Total, res.Created)
}

func TestPreviewHonorsCallerScope(t *testing.T) {
	f := newFixture(t, performance.CycleStatusInReview)
	ctx := context.Background()

	preview, err := f.svc.PreviewDraft(ctx, northScope, input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2,3]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"dan"}, ids(preview.Sample))

	_, err = f.svc.PreviewDraft(ctx, northScope, input(f.cycleID, calibration.ModeDepartment, `{"departmentIds":["sales"]}`))
	assert.ErrorIs(t, err, access.ErrForbidden)

	_, err = f.svc.PreviewDraft(ctx, anaScope, input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2]}`))
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestCreateSessionValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, performance.CycleStatusDraft)
	_, err := f.svc.CreateSession(ctx, hrScope, input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2]}`))
	assert.ErrorIs(t, err, calibration.ErrCycleNotOpen)

	f = newFixture(t, performance.CycleStatusActive)
	_, err = f.svc.CreateSession(ctx, hrScope, input(f.cycleID, "byMood", `{}`))
	assert.ErrorIs(t, err, calibration.ErrUnknownMode)

	in := input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2]}`)
	in.Name = " "
	_, err = f.svc.CreateSession(ctx, hrScope, in)
	assert.ErrorIs(t, err, calibration.ErrMissingName)

	_, err = f.svc.CreateSession(ctx, northScope, input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2]}`))
	assert.ErrorIs(t, err, access.ErrForbidden)

	session, err := f.svc.CreateSession(ctx, hrScope, input(f.cycleID, calibration.ModeJobLevel, `{"levels":[2]}`))
	require.NoError(t, err)
	assert.Equal(t, calibration.SessionStatusDraft, session.Status)
	assert.Equal(t, "hr@example.com", session.CreatedBy)

	sessions, err := f.svc.ListSessions(ctx, northScope, f.cycleID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, performance.CycleStatusInReview)
	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx, hrScope, input(f.cycleID, calibration.ModeDirectReports, `{"managerIds":["boss"]}`))
	require.NoError(t, err)

	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "ana", 3, "aligned with peers")
	assert.ErrorIs(t, err, calibration.ErrSessionState)

	res, err := f.svc.StartSession(ctx, hrScope, session.ID)
	require.NoError(t, err)
	assert.Equal(t, performance.BatchResult{Created: 4}, res)

	res, err = f.svc.StartSession(ctx, hrScope, session.ID)
	require.NoError(t, err)
	assert.Equal(t, performance.BatchResult{Skipped: 4}, res)

	participants, err := f.svc.ListParticipants(ctx, hrScope, session.ID)
	require.NoError(t, err)
	require.Len(t, participants, 4)
	assert.Equal(t, "ana", participants[0].EmployeeID)
	assert.Equal(t, 4.0, participants[0].OriginalScore)

	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "ana", 6, "too high")
	assert.ErrorIs(t, err, calibration.ErrInvalidScore)
	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "ana", 3, "  ")
	assert.ErrorIs(t, err, calibration.ErrMissingReason)
	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "fin", 3, "not in cohort")
	assert.ErrorIs(t, err, calibration.ErrNotParticipant)

	rating, err := f.svc.AdjustRating(ctx, hrScope, session.ID, "ana", 2.5, "aligned with peers")
	require.NoError(t, err)
	require.NotNil(t, rating.FinalScore)
	assert.Equal(t, 2.5, *rating.FinalScore)
	assert.Equal(t, performance.LevelMedium, rating.FinalLevel)
	assert.Equal(t, performance.LevelHigh, rating.CalculatedLevel)

	stored, err := f.store.GetRating(ctx, tenant, f.cycleID, "ana")
	require.NoError(t, err)
	assert.Equal(t, 2.5, stored.EffectiveScore())

	participants, err = f.svc.ListParticipants(ctx, hrScope, session.ID)
	require.NoError(t, err)
	require.NotNil(t, participants[0].AdjustedScore)
	assert.Equal(t, "aligned with peers", participants[0].Reason)
	assert.Equal(t, "hr@example.com", participants[0].AdjustedBy)

	report, err := f.svc.CloseSession(ctx, hrScope, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Sent)
	require.Len(t, f.announcer.messages, 4)
	assert.Equal(t, notifications.TemplateCalibrationClosed, f.announcer.messages[0].TemplateID)
	assert.Equal(t, "Q4 calibration", f.announcer.messages[0].Vars["sessionName"])

	_, err = f.svc.CloseSession(ctx, hrScope, session.ID)
	assert.ErrorIs(t, err, calibration.ErrSessionState)
	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "ben", 3, "late change")
	assert.ErrorIs(t, err, calibration.ErrSessionState)
	_, err = f.svc.StartSession(ctx, hrScope, session.ID)
	assert.ErrorIs(t, err, calibration.ErrSessionState)
}

func TestCloseDraftSessionFails(t *testing.T) {
	f := newFixture(t, performance.CycleStatusInReview)
	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx, hrScope, input(f.cycleID, calibration.ModeCustomPicks, `{"employeeIds":["ana"]}`))
	require.NoError(t, err)

	_, err = f.svc.CloseSession(ctx, hrScope, session.ID)
	assert.ErrorIs(t, err, calibration.ErrSessionState)
	assert.Empty(t, f.announcer.messages)
}

func TestAdjustRatifiedRatingFails(t *testing.T) {
	f := newFixture(t, performance.CycleStatusInReview)
	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx, hrScope, input(f.cycleID, calibration.ModeCustomPicks, `{"employeeIds":["ana","ben"]}`))
	require.NoError(t, err)
	_, err = f.svc.StartSession(ctx, hrScope, session.ID)
	require.NoError(t, err)

	ratified, err := f.store.GetRating(ctx, tenant, f.cycleID, "ben")
	require.NoError(t, err)
	now := time.Now()
	ratified.RatifiedAt = &now
	require.NoError(t, f.store.UpdateRating(ctx, tenant, ratified))

	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "ben", 4, "late change")
	assert.ErrorIs(t, err, calibration.ErrRatified)
	stored, err := f.store.GetRating(ctx, tenant, f.cycleID, "ben")
	require.NoError(t, err)
	assert.Nil(t, stored.FinalScore)

	_, err = f.svc.AdjustRating(ctx, hrScope, session.ID, "ana", 3.5, "aligned with peers")
	require.NoError(t, err)
}
