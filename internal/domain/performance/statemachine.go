package performance

var transitions = map[string][]string{
	CycleStatusDraft:     {CycleStatusScheduled, CycleStatusCancelled},
	CycleStatusScheduled: {CycleStatusActive, CycleStatusCancelled},
	CycleStatusActive:    {CycleStatusInReview, CycleStatusCancelled},
	CycleStatusInReview:  {CycleStatusCompleted},
	CycleStatusCompleted: nil,
	CycleStatusCancelled: nil,
}

// CycleStatuses lists every state in lifecycle order.
var CycleStatuses = []string{
	CycleStatusDraft,
	CycleStatusScheduled,
	CycleStatusActive,
	CycleStatusInReview,
	CycleStatusCompleted,
	CycleStatusCancelled,
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Deletable reports whether a cycle in status may still be removed with its assignments and ratings.
func Deletable(status string) bool {
	return status == CycleStatusDraft || status == CycleStatusScheduled
}
