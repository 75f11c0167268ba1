package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/memstore"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	svc := audit.New(memstore.New())

	require.NoError(t, svc.Record(ctx, audit.Entry{
		TenantID: "t1", ActorID: "u1", Action: audit.ActionCycleCreate,
		EntityType: "performance_cycle", EntityID: "c1", RequestID: "r1",
		After: map[string]string{"name": "H1"},
	}))
	require.NoError(t, svc.Record(ctx, audit.Entry{
		TenantID: "t1", ActorID: "u2", Action: audit.ActionCycleTransition,
		EntityType: "performance_cycle", EntityID: "c1",
		Before: map[string]string{"status": "draft"}, After: json.RawMessage(`{"status":"scheduled"}`),
	}))
	require.NoError(t, svc.Record(ctx, audit.Entry{TenantID: "t2", ActorID: "u9", Action: audit.ActionCycleCreate, EntityType: "performance_cycle"}))

	admin := access.Scope{TenantID: "t1", Role: auth.RoleHRAdmin}
	events, total, err := svc.List(ctx, admin, audit.Filter{}, false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionCycleTransition, events[0].Action)
	assert.Nil(t, events[0].After)

	events, _, err = svc.List(ctx, admin, audit.Filter{ActorUser: "u2"}, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"status":"draft"}`, string(events[0].Before))
	assert.JSONEq(t, `{"status":"scheduled"}`, string(events[0].After))

	events, total, err = svc.List(ctx, admin, audit.Filter{EntityID: "c1"}, false, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCycleCreate, events[0].Action)
}

func TestListRequiresAuditPermission(t *testing.T) {
	svc := audit.New(memstore.New())
	_, _, err := svc.List(context.Background(), access.Scope{TenantID: "t1", Role: auth.RoleManager}, audit.Filter{}, false, 10, 0)
	require.ErrorIs(t, err, access.ErrForbidden)

	_, _, err = svc.List(context.Background(), access.Scope{Role: auth.RoleHRAdmin}, audit.Filter{}, false, 10, 0)
	require.ErrorIs(t, err, access.ErrMissingTenant)
}

func TestRecordRequiresTenant(t *testing.T) {
	err := audit.New(memstore.New()).Record(context.Background(), audit.Entry{Action: audit.ActionCycleCreate})
	require.ErrorIs(t, err, access.ErrMissingTenant)
}
