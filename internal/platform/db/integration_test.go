package db_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/cache"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/db"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/testdb"
)

type seeded struct {
	tenant string
	sales  string
	north  string
	boss   string
	ana    string
	ben    string
}

func seedOrg(t *testing.T, d *testdb.TestDB) seeded {
	t.Helper()
	ctx := context.Background()
	s := seeded{tenant: d.Tenant(t)}

	require.NoError(t, d.Pool.QueryRow(ctx, `INSERT INTO departments (tenant_id, name, level) VALUES ($1, 'Sales', 2) RETURNING id`, s.tenant).Scan(&s.sales))
	require.NoError(t, d.Pool.QueryRow(ctx, `INSERT INTO departments (tenant_id, name, parent_id, level) VALUES ($1, 'Sales North', $2, 3) RETURNING id`, s.tenant, s.sales).Scan(&s.north))

	insert := func(name, dept, manager, position string, level int, track string) string {
		var id string
		require.NoError(t, d.Pool.QueryRow(ctx, `
      INSERT INTO employees (tenant_id, user_id, email, full_name, department_id, manager_id, position, standard_job_level, performance_track)
      VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8, $9)
      RETURNING id
    `, s.tenant, uuid.NewString(), name+"@example.com", name, dept, manager, position, level, track).Scan(&id))
		return id
	}
	s.boss = insert("Boss", s.sales, "", "Director", 5, org.TrackEjecutivo)
	s.ana = insert("Ana", s.sales, s.boss, "Sales Rep", 2, "")
	s.ben = insert("Ben", s.north, s.boss, "Sales Rep", 2, "")
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := testdb.Get(t)
	require.NoError(t, db.Migrate(d.Pool))

	var tables int
	require.NoError(t, d.Pool.QueryRow(context.Background(), `
    SELECT COUNT(1) FROM information_schema.tables
    WHERE table_schema = 'public' AND table_name IN ('performance_cycles', 'evaluation_assignments', 'performance_ratings', 'calibration_participants')
  `).Scan(&tables))
	assert.Equal(t, 4, tables)
}

func TestEnsureTenantReturnsExisting(t *testing.T) {
	d := testdb.Get(t)
	ctx := context.Background()
	name := "acme-" + uuid.NewString()

	first, err := db.EnsureTenant(ctx, d.Pool, name)
	require.NoError(t, err)
	second, err := db.EnsureTenant(ctx, d.Pool, name)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = db.EnsureTenant(ctx, d.Pool, " ")
	require.Error(t, err)
}

func TestCyclePipelineAgainstPostgres(t *testing.T) {
	d := testdb.Get(t)
	ctx := context.Background()
	s := seedOrg(t, d)

	orgSvc := org.NewService(org.NewStore(d.Pool), cache.NewLRU(cache.DefaultSize, cache.DefaultTTL), org.DefaultMaxDepth)
	builder := access.NewBuilder(orgSvc.Departments)
	perfStore := performance.NewStore(d.Pool)
	perf := performance.NewService(perfStore, orgSvc, builder, performance.Weights{})
	perf.RegisterHandlers(performance.NewCampaignStore(d.Pool), nil)

	admin := access.Scope{TenantID: s.tenant, Role: auth.RoleHRAdmin, UserEmail: "admin@example.com"}

	seededCompetencies, err := perf.SeedDefaults(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, len(performance.DefaultCompetencies), seededCompetencies.Created)
	again, err := perf.SeedDefaults(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, len(performance.DefaultCompetencies), again.Skipped)

	cycle, err := perf.CreateCycle(ctx, admin, performance.Cycle{
		Name:            "H1",
		StartDate:       time.Now().Add(-time.Hour),
		EndDate:         time.Now().Add(30 * 24 * time.Hour),
		IncludesSelf:    true,
		IncludesManager: true,
	})
	require.NoError(t, err)
	assert.Equal(t, performance.CycleStatusDraft, cycle.Status)
	assert.NotEmpty(t, cycle.CompetencySnapshot.Version)

	_, err = perf.Transition(ctx, admin, cycle.ID, performance.CycleStatusScheduled)
	require.NoError(t, err)
	res, err := perf.Transition(ctx, admin, cycle.ID, performance.CycleStatusActive)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	// three self evaluations and two manager evaluations by boss
	assignments, err := perf.ListAssignments(ctx, admin, cycle.ID, "")
	require.NoError(t, err)
	assert.Len(t, assignments, 5)

	rerun, err := perf.GenerateAssignments(ctx, admin, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rerun.Created)
	assert.Equal(t, 5, rerun.Skipped)

	anaEmp, err := orgSvc.GetEmployee(ctx, s.tenant, s.ana)
	require.NoError(t, err)
	codes := performance.CompetenciesFor(anaEmp, cycle.CompetencySnapshot)
	require.NotEmpty(t, codes)

	submit := func(evaluator, evaluatee string, score float64) {
		scope := access.Scope{TenantID: s.tenant, Role: auth.RoleEmployee, EmployeeID: evaluator}
		mine, err := perf.MyAssignments(ctx, scope, cycle.ID)
		require.NoError(t, err)
		for _, a := range mine {
			if a.EvaluateeID != evaluatee {
				continue
			}
			responses := make([]performance.Response, 0, len(codes))
			for _, c := range codes {
				responses = append(responses, performance.Response{CompetencyCode: c.Code, Score: score})
			}
			require.NoError(t, perf.SubmitResponses(ctx, scope, a.ID, responses))
			return
		}
		t.Fatalf("no assignment %s -> %s", evaluator, evaluatee)
	}
	submit(s.ana, s.ana, 4)
	submit(s.boss, s.ana, 3)

	res, err = perf.Transition(ctx, admin, cycle.ID, performance.CycleStatusInReview)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	ratings, err := perf.ListRatings(ctx, admin, cycle.ID, access.Options{})
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, s.ana, ratings[0].EmployeeID)
	assert.InDelta(t, 3.5, ratings[0].CalculatedScore, 0.001)
	assert.Equal(t, performance.LevelMedium, ratings[0].CalculatedLevel)

	// department scope reaches ana in sales but not from sales-north
	north := access.Scope{TenantID: s.tenant, Role: auth.RoleAreaManager, DepartmentID: s.north, EmployeeID: s.ben}
	visible, err := perf.ListRatings(ctx, north, cycle.ID, access.Options{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	calib := calibration.NewService(calibration.NewStore(d.Pool), perfStore, orgSvc, builder, nil)
	hr := access.Scope{TenantID: s.tenant, Role: auth.RoleHRManager, UserEmail: "hr@example.com"}
	config, err := json.Marshal(map[string]any{"levels": []int{2}})
	require.NoError(t, err)
	preview, err := calib.PreviewDraft(ctx, hr, calibration.CreateSessionInput{CycleID: cycle.ID, FilterMode: calibration.ModeJobLevel, FilterConfig: config})
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Total)
	require.Len(t, preview.Sample, 1)
	assert.Equal(t, "Ana", preview.Sample[0].FullName)

	session, err := calib.CreateSession(ctx, hr, calibration.CreateSessionInput{CycleID: cycle.ID, Name: "Sales", DepartmentIDs: []string{s.sales}})
	require.NoError(t, err)
	started, err := calib.StartSession(ctx, hr, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, started.Created)

	adjusted, err := calib.AdjustRating(ctx, hr, session.ID, s.ana, 4.5, "consistent overdelivery")
	require.NoError(t, err)
	require.NotNil(t, adjusted.FinalScore)
	assert.Equal(t, performance.LevelHigh, adjusted.FinalLevel)

	_, err = calib.CloseSession(ctx, hr, session.ID)
	require.NoError(t, err)
	_, err = calib.AdjustRating(ctx, hr, session.ID, s.ana, 3, "late change")
	require.ErrorIs(t, err, calibration.ErrSessionState)
}

func TestNotificationStoreAgainstPostgres(t *testing.T) {
	d := testdb.Get(t)
	ctx := context.Background()
	tenant := d.Tenant(t)
	userID := uuid.NewString()

	svc := notifications.New(notifications.NewStore(d.Pool), nil)
	require.NoError(t, svc.UpdateSettings(ctx, tenant, true, "perf@example.com"))
	enabled, from, err := svc.GetSettings(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, "perf@example.com", from)

	recipient := notifications.Recipient{TenantID: tenant, UserID: userID, Name: "Ana"}
	require.NoError(t, svc.Send(ctx, recipient, notifications.TemplateReportReady, map[string]string{"name": "Ana", "cycleName": "H1"}))

	total, err := svc.Count(ctx, tenant, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	items, err := svc.List(ctx, tenant, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Your H1 results are ready", items[0].Title)
	require.NoError(t, svc.MarkRead(ctx, tenant, userID, items[0].ID))
}
