package performancehandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/jobs"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/api"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/middleware"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/shared"
)

const entityCycle = "performance_cycle"

type Handler struct {
	Service *performance.Service
	Jobs    *jobs.Service
	Audit   *audit.Service
}

func NewHandler(service *performance.Service, jobsSvc *jobs.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Jobs: jobsSvc, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/performance", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		readCycles := middleware.RequireAnyPermission(auth.PermCyclesRead, auth.PermParticipate)
		manage := middleware.RequirePermission(auth.PermCyclesManage)
		results := middleware.RequirePermission(auth.PermResultsRead)

		r.With(readCycles).Get("/cycles", h.handleListCycles)
		r.With(manage).Post("/cycles", h.handleCreateCycle)
		r.With(readCycles).Get("/cycles/{cycleID}", h.handleGetCycle)
		r.With(manage).Delete("/cycles/{cycleID}", h.handleDeleteCycle)
		r.With(manage).Post("/cycles/{cycleID}/transition", h.handleTransition)
		r.With(manage).Post("/cycles/{cycleID}/retrigger", h.handleRetrigger)
		r.With(manage).Post("/cycles/{cycleID}/aggregate", h.handleAggregate)
		r.With(middleware.RequirePermission(auth.PermRatingsRatify)).Post("/cycles/{cycleID}/ratify", h.handleRatify)

		r.With(middleware.RequirePermission(auth.PermAssignmentsGenerate)).Post("/cycles/{cycleID}/assignments/generate", h.handleGenerateAll)
		r.With(middleware.RequirePermission(auth.PermAssignmentsGenerate)).Post("/cycles/{cycleID}/assignments/generate-employee", h.handleGenerateSingle)
		r.Get("/cycles/{cycleID}/assignments", h.handleListAssignments)
		r.With(middleware.RequirePermission(auth.PermParticipate)).Get("/cycles/{cycleID}/assignments/mine", h.handleMyAssignments)
		r.With(middleware.RequirePermission(auth.PermParticipate)).Post("/assignments/{assignmentID}/responses", h.handleSubmitResponses)

		r.With(results).Get("/cycles/{cycleID}/ratings", h.handleListRatings)
		r.With(results).Get("/cycles/{cycleID}/departments/{departmentID}/ratings", h.handleDepartmentRatings)
		r.With(results).Get("/cycles/{cycleID}/employees/{employeeID}/profile", h.handleProfile)
		r.Put("/cycles/{cycleID}/employees/{employeeID}/potential", h.handleRatePotential)

		r.With(readCycles).Get("/competencies", h.handleListCompetencies)
		r.With(manage).Post("/competencies/seed", h.handleSeedCompetencies)
		r.With(manage).Get("/jobs", h.handleListJobs)
	})
}

type cyclePayload struct {
	Name            string   `json:"name"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	IncludesSelf    bool     `json:"includesSelf"`
	IncludesManager bool     `json:"includesManager"`
	IncludesPeer    bool     `json:"includesPeer"`
	IncludesUpward  bool     `json:"includesUpward"`
	MinSubordinates int      `json:"minSubordinates"`
	MaxPeers        int      `json:"maxPeers"`
	DepartmentIDs   []string `json:"departmentIds"`
	CampaignID      string   `json:"campaignId"`
}

func (h *Handler) handleListCycles(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycles, err := h.Service.ListCycles(r.Context(), scope)
	if err != nil {
		api.FailError(w, err, "cycle_list_failed", reqID)
		return
	}
	api.Success(w, cycles, reqID)
}

func (h *Handler) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)

	var payload cyclePayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if !payload.IncludesSelf && !payload.IncludesManager && !payload.IncludesPeer && !payload.IncludesUpward {
		v.Add("includesSelf", "at least one evaluation type must be enabled")
	}
	if payload.MinSubordinates < 0 {
		v.Add("minSubordinates", "must not be negative")
	}
	if payload.MaxPeers < 0 {
		v.Add("maxPeers", "must not be negative")
	}
	if v.Reject(w, reqID) {
		return
	}

	cycle, err := h.Service.CreateCycle(r.Context(), scope, performance.Cycle{
		Name:            payload.Name,
		StartDate:       start,
		EndDate:         end,
		IncludesSelf:    payload.IncludesSelf,
		IncludesManager: payload.IncludesManager,
		IncludesPeer:    payload.IncludesPeer,
		IncludesUpward:  payload.IncludesUpward,
		MinSubordinates: payload.MinSubordinates,
		MaxPeers:        payload.MaxPeers,
		DepartmentIDs:   payload.DepartmentIDs,
		CampaignID:      payload.CampaignID,
	})
	if err != nil {
		api.FailError(w, err, "cycle_create_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionCycleCreate, entityCycle, cycle.ID, nil, cycle)
	api.Created(w, cycle, reqID)
}

func (h *Handler) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycle, err := h.Service.GetCycle(r.Context(), scope, chi.URLParam(r, "cycleID"))
	if err != nil {
		api.FailError(w, err, "cycle_get_failed", reqID)
		return
	}
	api.Success(w, cycle, reqID)
}

func (h *Handler) handleDeleteCycle(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")
	if err := h.Service.DeleteCycle(r.Context(), scope, cycleID); err != nil {
		api.FailError(w, err, "cycle_delete_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionCycleDelete, entityCycle, cycleID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")

	var payload struct {
		Status string `json:"status"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("status", payload.Status, "is required")
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.GetCycle(r.Context(), scope, cycleID)
	if err != nil {
		api.FailError(w, err, "cycle_transition_failed", reqID)
		return
	}
	res, err := h.Service.Transition(r.Context(), scope, cycleID, payload.Status)
	if err != nil {
		api.FailError(w, err, "cycle_transition_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionCycleTransition, entityCycle, cycleID,
		map[string]string{"status": before.Status},
		map[string]any{"status": res.Cycle.Status, "warnings": res.Warnings, "queued": res.Queued})
	body := transitionResponse{Cycle: res.Cycle, Queued: res.Queued}
	if len(res.Warnings) > 0 {
		api.SuccessWithWarnings(w, body, res.Warnings, reqID)
		return
	}
	api.Success(w, body, reqID)
}

// transitionResponse is the cycle plus the side effects still running.
type transitionResponse struct {
	performance.Cycle
	Queued []string `json:"queued,omitempty"`
}

func (h *Handler) handleRetrigger(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")

	var payload struct {
		Handler string `json:"handler"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Enum("handler", payload.Handler, []string{
		performance.HandlerCampaignActivation,
		performance.HandlerAssignmentGeneration,
		performance.HandlerAssignmentNotification,
		performance.HandlerAggregation,
		performance.HandlerReportNotification,
	}, "unknown handler")
	v.Required("handler", payload.Handler, "is required")
	if v.Reject(w, reqID) {
		return
	}

	out, err := h.Service.Retrigger(r.Context(), scope, cycleID, payload.Handler)
	if err != nil {
		api.FailError(w, err, "cycle_retrigger_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionCycleRetrigger, entityCycle, cycleID, nil,
		map[string]any{"handler": payload.Handler, "warnings": out.Warnings, "queued": out.Queued})
	status := "retriggered"
	if len(out.Queued) > 0 {
		status = "queued"
	}
	if len(out.Warnings) > 0 {
		api.SuccessWithWarnings(w, map[string]string{"status": status}, out.Warnings, reqID)
		return
	}
	api.Success(w, map[string]string{"status": status}, reqID)
}

// runBatch executes a bulk operation as a recorded job run. A partial
// BatchResult is still returned to the caller when the job fails midway.
func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request, jobType, failCode string, fn func(ctx context.Context) (performance.BatchResult, error)) (performance.BatchResult, bool) {
	_, reqID := requestScope(r)
	user, _ := middleware.GetUser(r.Context())
	var (
		res performance.BatchResult
		err error
	)
	if h.Jobs != nil {
		var details any
		details, err = h.Jobs.RunNow(r.Context(), jobType, user.TenantID, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
		res, _ = details.(performance.BatchResult)
	} else {
		res, err = fn(r.Context())
	}
	if err != nil {
		api.FailError(w, err, failCode, reqID)
		return res, false
	}
	return res, true
}

func (h *Handler) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")
	res, ok := h.runBatch(w, r, jobs.JobGenerate, "assignment_generate_failed", func(ctx context.Context) (performance.BatchResult, error) {
		return h.Service.GenerateAssignments(ctx, scope, cycleID)
	})
	if !ok {
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionAssignmentsCreate, entityCycle, cycleID, nil, res)
	api.Success(w, res, reqID)
}

func (h *Handler) handleGenerateSingle(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")

	var payload struct {
		EmployeeID string `json:"employeeId"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	if v.Reject(w, reqID) {
		return
	}

	res, err := h.Service.GenerateForEmployee(r.Context(), scope, cycleID, payload.EmployeeID)
	if err != nil {
		api.FailError(w, err, "assignment_generate_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionAssignmentsCreate, "employee", payload.EmployeeID, nil,
		map[string]any{"cycleId": cycleID, "result": res})
	api.Success(w, res, reqID)
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")
	res, ok := h.runBatch(w, r, jobs.JobAggregate, "aggregation_failed", func(ctx context.Context) (performance.BatchResult, error) {
		return h.Service.Aggregate(ctx, scope, cycleID)
	})
	if !ok {
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionRatingsAggregate, entityCycle, cycleID, nil, res)
	api.Success(w, res, reqID)
}

func (h *Handler) handleRatify(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")
	res, ok := h.runBatch(w, r, jobs.JobRatify, "ratification_failed", func(ctx context.Context) (performance.BatchResult, error) {
		return h.Service.RatifyRatings(ctx, scope, cycleID)
	})
	if !ok {
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionRatingsRatify, entityCycle, cycleID, nil, res)
	api.Success(w, res, reqID)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	status := r.URL.Query().Get("status")
	v := shared.NewValidator()
	v.Enum("status", status, []string{
		performance.AssignmentStatusPending,
		performance.AssignmentStatusInProgress,
		performance.AssignmentStatusCompleted,
		performance.AssignmentStatusExpired,
	}, "unknown assignment status")
	if v.Reject(w, reqID) {
		return
	}

	items, err := h.Service.ListAssignments(r.Context(), scope, chi.URLParam(r, "cycleID"), status)
	if err != nil {
		api.FailError(w, err, "assignment_list_failed", reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 1000)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	api.Success(w, shared.Page(items, page), reqID)
}

func (h *Handler) handleMyAssignments(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	items, err := h.Service.MyAssignments(r.Context(), scope, chi.URLParam(r, "cycleID"))
	if err != nil {
		api.FailError(w, err, "assignment_list_failed", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleSubmitResponses(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	assignmentID := chi.URLParam(r, "assignmentID")

	var payload struct {
		Responses []performance.Response `json:"responses"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	if len(payload.Responses) == 0 {
		v.Add("responses", "at least one response is required")
	}
	for i, resp := range payload.Responses {
		field := "responses[" + strconv.Itoa(i) + "]"
		v.Required(field+".competencyCode", resp.CompetencyCode, "is required")
		v.Range(field+".score", resp.Score, performance.MinScore, performance.MaxScore)
	}
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Service.SubmitResponses(r.Context(), scope, assignmentID, payload.Responses); err != nil {
		api.FailError(w, err, "response_submit_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionResponsesSubmit, "evaluation_assignment", assignmentID, nil,
		map[string]int{"responses": len(payload.Responses)})
	api.Success(w, map[string]string{"status": "submitted"}, reqID)
}

func (h *Handler) handleListRatings(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	opts := access.Options{CompanyWide: r.URL.Query().Get("view") == "company"}
	ratings, err := h.Service.ListRatings(r.Context(), scope, chi.URLParam(r, "cycleID"), opts)
	if err != nil {
		api.FailError(w, err, "rating_list_failed", reqID)
		return
	}
	page := shared.ParsePagination(r, 100, 1000)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(ratings)))
	api.Success(w, shared.Page(ratings, page), reqID)
}

func (h *Handler) handleDepartmentRatings(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	ratings, err := h.Service.DepartmentRatings(r.Context(), scope, chi.URLParam(r, "cycleID"), chi.URLParam(r, "departmentID"))
	if err != nil {
		api.FailError(w, err, "rating_list_failed", reqID)
		return
	}
	api.Success(w, ratings, reqID)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	profile, err := h.Service.EmployeeProfile(r.Context(), scope, chi.URLParam(r, "cycleID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, "profile_failed", reqID)
		return
	}
	top := defaultProfileTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			top = v
		}
	}
	api.Success(w, profileResponse{
		Profile:          profile,
		Strengths:        nonNil(profile.Strengths(top)),
		DevelopmentAreas: nonNil(profile.DevelopmentAreas(top)),
		BlindSpots:       nonNil(profile.Classified(performance.GapBlindSpot)),
		HiddenStrengths:  nonNil(profile.Classified(performance.GapHiddenStrength)),
	}, reqID)
}

const defaultProfileTop = 3

type profileResponse struct {
	performance.Profile
	Strengths        []performance.CompetencyScore `json:"strengths"`
	DevelopmentAreas []performance.CompetencyScore `json:"developmentAreas"`
	BlindSpots       []performance.CompetencyScore `json:"blindSpots"`
	HiddenStrengths  []performance.CompetencyScore `json:"hiddenStrengths"`
}

func nonNil(scores []performance.CompetencyScore) []performance.CompetencyScore {
	if scores == nil {
		return []performance.CompetencyScore{}
	}
	return scores
}

func (h *Handler) handleRatePotential(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	cycleID := chi.URLParam(r, "cycleID")
	employeeID := chi.URLParam(r, "employeeID")

	var payload performance.PotentialFactors
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Range("aspiration", float64(payload.Aspiration), performance.MinFactor, performance.MaxFactor)
	v.Range("ability", float64(payload.Ability), performance.MinFactor, performance.MaxFactor)
	v.Range("engagement", float64(payload.Engagement), performance.MinFactor, performance.MaxFactor)
	if v.Reject(w, reqID) {
		return
	}

	rating, err := h.Service.RatePotential(r.Context(), scope, cycleID, employeeID, payload)
	if err != nil {
		api.FailError(w, err, "potential_rate_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionPotentialRate, "employee", employeeID, nil, map[string]any{
		"cycleId":         cycleID,
		"potentialLevel":  rating.PotentialLevel,
		"nineBoxPosition": rating.NineBoxPosition,
	})
	api.Success(w, rating, reqID)
}

func (h *Handler) handleListCompetencies(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	items, err := h.Service.ListCompetencies(r.Context(), scope)
	if err != nil {
		api.FailError(w, err, "competency_list_failed", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleSeedCompetencies(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	res, err := h.Service.SeedDefaults(r.Context(), scope)
	if err != nil {
		api.FailError(w, err, "competency_seed_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionCompetenciesSeed, "competency", "", nil, res)
	api.Success(w, res, reqID)
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	scope, reqID := requestScope(r)
	if h.Jobs == nil {
		api.Success(w, []jobs.Run{}, reqID)
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	runs, err := h.Jobs.Runs(r.Context(), scope.TenantID, page.Limit)
	if err != nil {
		api.FailError(w, err, "job_list_failed", reqID)
		return
	}
	api.Success(w, runs, reqID)
}

func requestScope(r *http.Request) (access.Scope, string) {
	scope, _ := middleware.GetScope(r.Context())
	return scope, middleware.GetRequestID(r.Context())
}
