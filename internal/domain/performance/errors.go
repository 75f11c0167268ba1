package performance

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid cycle transition")
	ErrDuplicate         = errors.New("already exists")
	ErrMissingDepartment = errors.New("employee has no department")
	ErrNotInScope        = errors.New("employee not in cycle scope")
	ErrCycleNotOpen      = errors.New("cycle is not open for assignments")
	ErrCycleLocked       = errors.New("cycle can only be deleted before activation")
	ErrNotEvaluator      = errors.New("caller is not the evaluator of this assignment")
	ErrAssignmentClosed  = errors.New("assignment no longer accepts responses")
	ErrNotInReview       = errors.New("ratings can only be ratified while the cycle is in review")

	// ErrValidation is wrapped by every input rejection.
	ErrValidation         = errors.New("validation failed")
	ErrInvalidScore       = fmt.Errorf("%w: score must be between %.0f and %.0f", ErrValidation, MinScore, MaxScore)
	ErrInvalidFactor      = fmt.Errorf("%w: potential factors must be between %d and %d", ErrValidation, MinFactor, MaxFactor)
	ErrUnknownCompetency  = fmt.Errorf("%w: competency not applicable to evaluatee", ErrValidation)
	ErrInvalidCycleWindow = fmt.Errorf("%w: cycle end date must follow start date", ErrValidation)
	ErrMissingName        = fmt.Errorf("%w: name is required", ErrValidation)
)

// TransitionError names the rejected state pair.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid cycle transition from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
