package performance

import "time"

const (
	CycleStatusDraft     = "draft"
	CycleStatusScheduled = "scheduled"
	CycleStatusActive    = "active"
	CycleStatusInReview  = "in_review"
	CycleStatusCompleted = "completed"
	CycleStatusCancelled = "cancelled"

	AssignmentTypeSelf              = "SELF"
	AssignmentTypeManagerToEmployee = "MANAGER_TO_EMPLOYEE"
	AssignmentTypeEmployeeToManager = "EMPLOYEE_TO_MANAGER"
	AssignmentTypePeer              = "PEER"

	AssignmentStatusPending    = "pending"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
	AssignmentStatusExpired    = "expired"

	RaterSelf    = "self"
	RaterManager = "manager"
	RaterPeer    = "peer"
	RaterUpward  = "upward"

	GapBlindSpot       = "BLIND_SPOT"
	GapHiddenStrength  = "HIDDEN_STRENGTH"
	GapDevelopmentArea = "DEVELOPMENT_AREA"

	CategoryCore       = "CORE"
	CategoryLeadership = "LEADERSHIP"
	CategoryStrategic  = "STRATEGIC"

	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"

	NineBoxStar           = "star"
	NineBoxHighPotential  = "high_potential"
	NineBoxEnigma         = "enigma"
	NineBoxHighPerformer  = "high_performer"
	NineBoxCorePlayer     = "core_player"
	NineBoxInconsistent   = "inconsistent"
	NineBoxSolidPerformer = "solid_performer"
	NineBoxEffective      = "effective"
	NineBoxRisk           = "risk"

	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
)

const (
	MinScore = 1.0
	MaxScore = 5.0

	MinFactor = 1
	MaxFactor = 3

	DefaultMaxPeers        = 3
	DefaultMinSubordinates = 1

	// Gaps at or beyond this magnitude between self and manager scores are classified.
	GapThreshold = 0.5
	// Competencies whose overall average falls below this are development areas.
	DevelopmentThreshold = 3.0

	DefaultDueWindow = 14 * 24 * time.Hour
)

// raterTypes maps an assignment type to the rater perspective it contributes.
var raterTypes = map[string]string{
	AssignmentTypeSelf:              RaterSelf,
	AssignmentTypeManagerToEmployee: RaterManager,
	AssignmentTypePeer:              RaterPeer,
	AssignmentTypeEmployeeToManager: RaterUpward,
}

func RaterType(assignmentType string) string {
	return raterTypes[assignmentType]
}
