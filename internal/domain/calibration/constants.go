package calibration

const (
	SessionStatusDraft      = "draft"
	SessionStatusInProgress = "in_progress"
	SessionStatusClosed     = "closed"

	ModeDepartment    = "department"
	ModeJobLevel      = "jobLevel"
	ModeJobFamily     = "jobFamily"
	ModeDirectReports = "directReports"
	ModeCustomPicks   = "customPicks"

	// PreviewLimit caps the sample returned before a session is committed.
	PreviewLimit = 20
)
