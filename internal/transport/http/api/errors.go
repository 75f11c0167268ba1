package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first matching target wins.
var errorMappings = []errorMapping{
	{access.ErrMissingTenant, http.StatusUnauthorized, "unauthorized", "authentication required"},
	{org.ErrMissingTenant, http.StatusUnauthorized, "unauthorized", "authentication required"},
	{access.ErrForbidden, http.StatusForbidden, "forbidden", ""},
	{performance.ErrNotEvaluator, http.StatusForbidden, "forbidden", ""},
	{performance.ErrNotInScope, http.StatusUnprocessableEntity, "not_in_scope", ""},
	{performance.ErrMissingDepartment, http.StatusUnprocessableEntity, "missing_department", ""},
	{performance.ErrInvalidTransition, http.StatusConflict, "invalid_transition", ""},
	{performance.ErrCycleLocked, http.StatusConflict, "cycle_locked", ""},
	{performance.ErrCycleNotOpen, http.StatusConflict, "cycle_not_open", ""},
	{performance.ErrAssignmentClosed, http.StatusConflict, "assignment_closed", ""},
	{performance.ErrDuplicate, http.StatusConflict, "duplicate", ""},
	{performance.ErrNotInReview, http.StatusConflict, "cycle_not_in_review", ""},
	{calibration.ErrSessionState, http.StatusConflict, "session_state", ""},
	{calibration.ErrRatified, http.StatusConflict, "rating_ratified", ""},
	{org.ErrDepartmentInUse, http.StatusConflict, "department_in_use", ""},
	{org.ErrInvalidParent, http.StatusBadRequest, "invalid_parent", ""},
	{calibration.ErrNotParticipant, http.StatusNotFound, "not_participant", ""},
	{performance.ErrValidation, http.StatusBadRequest, "validation_error", ""},
	{calibration.ErrValidation, http.StatusBadRequest, "validation_error", ""},
	{performance.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{calibration.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{org.ErrNotFound, http.StatusNotFound, "not_found", ""},
}

// FailError maps a domain error onto the envelope. Unknown errors become a 500
// carrying the fallback code without leaking the error text.
func FailError(w http.ResponseWriter, err error, fallbackCode, requestID string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			Fail(w, m.status, m.code, msg, requestID)
			return
		}
	}
	slog.Error("request failed", "code", fallbackCode, "requestId", requestID, "err", err)
	Fail(w, http.StatusInternalServerError, fallbackCode, "internal error", requestID)
}
