package calibrationhandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/calibration"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/api"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/middleware"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/shared"
)

const entitySession = "calibration_session"

var filterModes = []string{
	calibration.ModeDepartment,
	calibration.ModeJobLevel,
	calibration.ModeJobFamily,
	calibration.ModeDirectReports,
	calibration.ModeCustomPicks,
}

type Handler struct {
	Service *calibration.Service
	Audit   *audit.Service
}

func NewHandler(service *calibration.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calibration", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		read := middleware.RequirePermission(auth.PermCalibrationRead)
		manage := middleware.RequirePermission(auth.PermCalibrationManage)

		r.With(read).Get("/sessions", h.handleListSessions)
		r.With(manage).Post("/sessions", h.handleCreateSession)
		r.With(read).Post("/preview", h.handlePreviewDraft)
		r.With(read).Get("/sessions/{sessionID}", h.handleGetSession)
		r.With(read).Get("/sessions/{sessionID}/preview", h.handlePreviewSession)
		r.With(manage).Post("/sessions/{sessionID}/start", h.handleStartSession)
		r.With(read).Get("/sessions/{sessionID}/participants", h.handleListParticipants)
		r.With(manage).Put("/sessions/{sessionID}/participants/{employeeID}", h.handleAdjust)
		r.With(manage).Post("/sessions/{sessionID}/close", h.handleCloseSession)
	})
}

type sessionPayload struct {
	CycleID       string          `json:"cycleId"`
	Name          string          `json:"name"`
	DepartmentIDs []string        `json:"departmentIds"`
	FilterMode    string          `json:"filterMode"`
	FilterConfig  json.RawMessage `json:"filterConfig"`
}

func (p sessionPayload) validate(v *shared.Validator, requireName bool) {
	v.Required("cycleId", p.CycleID, "is required")
	if requireName {
		v.Required("name", p.Name, "is required")
	}
	v.Enum("filterMode", p.FilterMode, filterModes, "unknown filter mode")
	if p.FilterMode == "" && len(p.DepartmentIDs) == 0 {
		v.Add("filterMode", "a filter mode or department list is required")
	}
}

func (p sessionPayload) input() calibration.CreateSessionInput {
	return calibration.CreateSessionInput{
		CycleID:       p.CycleID,
		Name:          p.Name,
		DepartmentIDs: p.DepartmentIDs,
		FilterMode:    p.FilterMode,
		FilterConfig:  p.FilterConfig,
	}
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	sessions, err := h.Service.ListSessions(r.Context(), scope, r.URL.Query().Get("cycleId"))
	if err != nil {
		api.FailError(w, err, "session_list_failed", reqID)
		return
	}
	api.Success(w, sessions, reqID)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)

	var payload sessionPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	payload.validate(v, true)
	if v.Reject(w, reqID) {
		return
	}

	session, err := h.Service.CreateSession(r.Context(), scope, payload.input())
	if err != nil {
		api.FailError(w, err, "session_create_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionSessionCreate, entitySession, session.ID, nil, session)
	api.Created(w, session, reqID)
}

func (h *Handler) handlePreviewDraft(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)

	var payload sessionPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	payload.validate(v, false)
	if v.Reject(w, reqID) {
		return
	}

	preview, err := h.Service.PreviewDraft(r.Context(), scope, payload.input())
	if err != nil {
		api.FailError(w, err, "session_preview_failed", reqID)
		return
	}
	api.Success(w, preview, reqID)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	session, err := h.Service.GetSession(r.Context(), scope, chi.URLParam(r, "sessionID"))
	if err != nil {
		api.FailError(w, err, "session_get_failed", reqID)
		return
	}
	api.Success(w, session, reqID)
}

func (h *Handler) handlePreviewSession(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	preview, err := h.Service.PreviewSession(r.Context(), scope, chi.URLParam(r, "sessionID"))
	if err != nil {
		api.FailError(w, err, "session_preview_failed", reqID)
		return
	}
	api.Success(w, preview, reqID)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	sessionID := chi.URLParam(r, "sessionID")
	res, err := h.Service.StartSession(r.Context(), scope, sessionID)
	if err != nil {
		api.FailError(w, err, "session_start_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionSessionStart, entitySession, sessionID, nil, res)
	api.Success(w, res, reqID)
}

func (h *Handler) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	items, err := h.Service.ListParticipants(r.Context(), scope, chi.URLParam(r, "sessionID"))
	if err != nil {
		api.FailError(w, err, "participant_list_failed", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	sessionID := chi.URLParam(r, "sessionID")
	employeeID := chi.URLParam(r, "employeeID")

	var payload struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Range("score", payload.Score, 1, 5)
	v.Required("reason", payload.Reason, "is required")
	if v.Reject(w, reqID) {
		return
	}

	rating, err := h.Service.AdjustRating(r.Context(), scope, sessionID, employeeID, payload.Score, payload.Reason)
	if err != nil {
		api.FailError(w, err, "rating_adjust_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionSessionAdjust, entitySession, sessionID, nil, map[string]any{
		"employeeId": employeeID,
		"score":      payload.Score,
		"reason":     payload.Reason,
		"finalLevel": rating.FinalLevel,
	})
	api.Success(w, rating, reqID)
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	sessionID := chi.URLParam(r, "sessionID")
	report, err := h.Service.CloseSession(r.Context(), scope, sessionID)
	if err != nil {
		api.FailError(w, err, "session_close_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionSessionClose, entitySession, sessionID, nil, report)
	api.Success(w, map[string]any{"status": calibration.SessionStatusClosed, "notifications": report}, reqID)
}

func requestScope(r *http.Request) (access.Scope, string) {
	scope, _ := middleware.GetScope(r.Context())
	return scope, middleware.GetRequestID(r.Context())
}
