package performance

import (
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
)

type Cycle struct {
	ID                 string             `json:"id"`
	TenantID           string             `json:"tenantId"`
	Name               string             `json:"name"`
	StartDate          time.Time          `json:"startDate"`
	EndDate            time.Time          `json:"endDate"`
	Status             string             `json:"status"`
	IncludesSelf       bool               `json:"includesSelf"`
	IncludesManager    bool               `json:"includesManager"`
	IncludesPeer       bool               `json:"includesPeer"`
	IncludesUpward     bool               `json:"includesUpward"`
	MinSubordinates    int                `json:"minSubordinates"`
	MaxPeers           int                `json:"maxPeers"`
	DepartmentIDs      []string           `json:"departmentIds,omitempty"`
	CampaignID         string             `json:"campaignId,omitempty"`
	CompetencySnapshot CompetencySnapshot `json:"competencySnapshot"`
	CreatedAt          time.Time          `json:"createdAt"`
}

type Audience struct {
	Tracks      []string `json:"tracks,omitempty"`
	MinJobLevel int      `json:"minJobLevel,omitempty"`
	MaxJobLevel int      `json:"maxJobLevel,omitempty"`
}

type Competency struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Audience    Audience `json:"audience"`
	SortOrder   int      `json:"sortOrder"`
}

// CompetencySnapshot is the competency set frozen onto a cycle when it is created.
type CompetencySnapshot struct {
	Version      string       `json:"version"`
	Competencies []Competency `json:"competencies"`
}

type Assignment struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	CycleID     string     `json:"cycleId"`
	EvaluatorID string     `json:"evaluatorId"`
	EvaluateeID string     `json:"evaluateeId"`
	Type        string     `json:"evaluationType"`
	Status      string     `json:"status"`
	DueDate     time.Time  `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{CycleID: a.CycleID, EvaluatorID: a.EvaluatorID, EvaluateeID: a.EvaluateeID, Type: a.Type}
}

// AssignmentKey is the idempotency tuple of an assignment.
type AssignmentKey struct {
	CycleID     string
	EvaluatorID string
	EvaluateeID string
	Type        string
}

type AssignmentQuery struct {
	CycleID     string
	EvaluatorID string
	EvaluateeID string
	Status      string
	// Filter is applied to the evaluatee's department.
	Filter access.Filter
}

type Response struct {
	AssignmentID   string  `json:"assignmentId,omitempty"`
	CompetencyCode string  `json:"competencyCode"`
	Score          float64 `json:"score"`
	Comment        string  `json:"comment,omitempty"`
}

type Rating struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenantId"`
	CycleID         string     `json:"cycleId"`
	EmployeeID      string     `json:"employeeId"`
	EmployeeName    string     `json:"employeeName,omitempty"`
	DepartmentID    string     `json:"departmentId,omitempty"`
	CalculatedScore float64    `json:"calculatedScore"`
	CalculatedLevel string     `json:"calculatedLevel"`
	FinalScore      *float64   `json:"finalScore,omitempty"`
	FinalLevel      string     `json:"finalLevel,omitempty"`
	Aspiration      int        `json:"aspiration,omitempty"`
	Ability         int        `json:"ability,omitempty"`
	Engagement      int        `json:"engagement,omitempty"`
	PotentialScore  float64    `json:"potentialScore,omitempty"`
	PotentialLevel  string     `json:"potentialLevel,omitempty"`
	NineBoxPosition string     `json:"nineBoxPosition,omitempty"`
	RatifiedAt      *time.Time `json:"ratifiedAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// EffectiveScore is the calibrated score when one exists, otherwise the calculated score.
func (r Rating) EffectiveScore() float64 {
	if r.FinalScore != nil {
		return *r.FinalScore
	}
	return r.CalculatedScore
}

// Recompute refreshes the derived levels and the 9-box cell from the stored scores.
func (r *Rating) Recompute() {
	r.CalculatedLevel = PerformanceLevel(r.CalculatedScore)
	if r.FinalScore != nil {
		r.FinalLevel = PerformanceLevel(*r.FinalScore)
	}
	r.NineBoxPosition = ""
	perf := PerformanceLevel(r.EffectiveScore())
	if perf != "" && r.PotentialLevel != "" {
		r.NineBoxPosition = NineBox(perf, r.PotentialLevel)
	}
}

type RatingQuery struct {
	CycleID string
	Filter  access.Filter
}

// ItemError records one failed item of a bulk operation.
type ItemError struct {
	EmployeeID string `json:"employeeId,omitempty"`
	Item       string `json:"item,omitempty"`
	Message    string `json:"message"`
}

// BatchResult is what every administrative bulk operation reports.
type BatchResult struct {
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

func (r *BatchResult) fail(employeeID, item string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ItemError{EmployeeID: employeeID, Item: item, Message: err.Error()})
}

// Warning is a side effect failure that did not roll back the operation it followed.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type TransitionResult struct {
	Cycle    Cycle     `json:"cycle"`
	Warnings []Warning `json:"warnings,omitempty"`
	// Queued names the handlers still running in the background.
	Queued []string `json:"queued,omitempty"`
}
