package calibration

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrSessionState   = errors.New("calibration session is not in the required state")
	ErrNotParticipant = errors.New("employee is not a participant of this session")
	ErrRatified       = errors.New("rating is already ratified")

	ErrValidation     = errors.New("validation failed")
	ErrUnknownMode    = fmt.Errorf("%w: unknown filter mode", ErrValidation)
	ErrInvalidConfig  = fmt.Errorf("%w: malformed filter config", ErrValidation)
	ErrEmptySelection = fmt.Errorf("%w: filter selects nothing", ErrValidation)
	ErrInvalidScore   = fmt.Errorf("%w: adjusted score must be between 1 and 5", ErrValidation)
	ErrMissingReason  = fmt.Errorf("%w: an adjustment reason is required", ErrValidation)
	ErrMissingName    = fmt.Errorf("%w: name is required", ErrValidation)
	ErrCycleNotOpen   = fmt.Errorf("%w: cycle must be active or in review", ErrValidation)
)
