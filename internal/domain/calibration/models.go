package calibration

import (
	"encoding/json"
	"time"
)

type Session struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenantId"`
	CycleID       string          `json:"cycleId"`
	Name          string          `json:"name"`
	Status        string          `json:"status"`
	DepartmentIDs []string        `json:"departmentIds,omitempty"`
	FilterMode    string          `json:"filterMode,omitempty"`
	FilterConfig  json.RawMessage `json:"filterConfig,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	ClosedAt      *time.Time      `json:"closedAt,omitempty"`
}

type Participant struct {
	SessionID     string     `json:"sessionId"`
	EmployeeID    string     `json:"employeeId"`
	EmployeeName  string     `json:"employeeName,omitempty"`
	DepartmentID  string     `json:"departmentId,omitempty"`
	OriginalScore float64    `json:"originalScore"`
	AdjustedScore *float64   `json:"adjustedScore,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	AdjustedBy    string     `json:"adjustedBy,omitempty"`
	AdjustedAt    *time.Time `json:"adjustedAt,omitempty"`
}

// Candidate is an employee selected for calibration with its current rating.
type Candidate struct {
	EmployeeID       string  `json:"employeeId"`
	FullName         string  `json:"fullName"`
	DepartmentID     string  `json:"departmentId,omitempty"`
	ManagerID        string  `json:"managerId,omitempty"`
	Position         string  `json:"position,omitempty"`
	StandardJobLevel int     `json:"standardJobLevel"`
	Score            float64 `json:"score"`
	NineBoxPosition  string  `json:"nineBoxPosition,omitempty"`
}

type Preview struct {
	Sample []Candidate `json:"sample"`
	Total  int         `json:"total"`
}
