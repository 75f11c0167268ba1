package org

import "time"

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"

	TrackColaborador = "COLABORADOR"
	TrackManager     = "MANAGER"
	TrackEjecutivo   = "EJECUTIVO"

	// DepartmentLevelUnit is a top unit; DepartmentLevelSubUnit sits beneath one.
	DepartmentLevelUnit    = 2
	DepartmentLevelSubUnit = 3
)

type Employee struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenantId"`
	UserID           string    `json:"userId,omitempty"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	DepartmentID     string    `json:"departmentId"`
	ManagerID        string    `json:"managerId"`
	Position         string    `json:"position"`
	StandardJobLevel int       `json:"standardJobLevel"`
	PerformanceTrack string    `json:"performanceTrack"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (e Employee) Active() bool {
	return e.Status == EmployeeStatusActive
}

// Track returns the performance track, defaulting to COLABORADOR.
func (e Employee) Track() string {
	switch e.PerformanceTrack {
	case TrackManager, TrackEjecutivo:
		return e.PerformanceTrack
	default:
		return TrackColaborador
	}
}

type Department struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}

type EmployeeFilter struct {
	IDs           []string
	DepartmentIDs []string
	ActiveOnly    bool
}
