package audit

import (
	"encoding/json"
	"time"
)

const (
	ActionCycleCreate       = "performance.cycle.create"
	ActionCycleTransition   = "performance.cycle.transition"
	ActionCycleDelete       = "performance.cycle.delete"
	ActionCycleRetrigger    = "performance.cycle.retrigger"
	ActionAssignmentsCreate = "performance.assignments.generate"
	ActionResponsesSubmit   = "performance.responses.submit"
	ActionPotentialRate     = "performance.potential.rate"
	ActionRatingsRatify     = "performance.ratings.ratify"
	ActionRatingsAggregate  = "performance.ratings.aggregate"
	ActionCompetenciesSeed  = "performance.competencies.seed"
	ActionSessionCreate     = "calibration.session.create"
	ActionSessionStart      = "calibration.session.start"
	ActionSessionAdjust     = "calibration.session.adjust"
	ActionSessionClose      = "calibration.session.close"
	ActionDepartmentCreate  = "org.department.create"
	ActionDepartmentMove    = "org.department.move"
	ActionDepartmentDelete  = "org.department.delete"
	ActionEmployeeMove      = "org.employee.move"
	ActionSettingsUpdate    = "notifications.settings.update"
)

type Entry struct {
	TenantID   string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}
