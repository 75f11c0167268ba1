package orghandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/api"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/middleware"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/shared"
)

type Handler struct {
	Service *org.Service
	Audit   *audit.Service
}

func NewHandler(service *org.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/org", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		write := middleware.RequirePermission(auth.PermOrgWrite)

		r.Get("/departments", h.handleListDepartments)
		r.With(write).Post("/departments", h.handleCreateDepartment)
		r.Get("/departments/{departmentID}/subtree", h.handleSubtree)
		r.With(write).Put("/departments/{departmentID}/parent", h.handleMoveDepartment)
		r.With(write).Delete("/departments/{departmentID}", h.handleDeleteDepartment)
		r.With(write).Put("/employees/{employeeID}/placement", h.handleMoveEmployee)
	})
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListDepartments(r.Context(), user.TenantID)
	if err != nil {
		api.FailError(w, err, "department_list_failed", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		Name     string `json:"name"`
		ParentID string `json:"parentId"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Service.CreateDepartment(r.Context(), user.TenantID, org.Department{Name: payload.Name, ParentID: payload.ParentID})
	if err != nil {
		api.FailError(w, err, "department_create_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionDepartmentCreate, "department", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleSubtree(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	ids, err := h.Service.DepartmentSubtree(r.Context(), user.TenantID, chi.URLParam(r, "departmentID"))
	if err != nil {
		api.FailError(w, err, "department_subtree_failed", reqID)
		return
	}
	api.Success(w, ids, reqID)
}

func (h *Handler) handleMoveDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	var payload struct {
		ParentID string `json:"parentId"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	if err := h.Service.MoveDepartment(r.Context(), user.TenantID, departmentID, payload.ParentID); err != nil {
		api.FailError(w, err, "department_move_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionDepartmentMove, "department", departmentID, nil, payload)
	api.Success(w, map[string]string{"status": "moved"}, reqID)
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	departmentID := chi.URLParam(r, "departmentID")
	if err := h.Service.DeleteDepartment(r.Context(), user.TenantID, departmentID); err != nil {
		api.FailError(w, err, "department_delete_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionDepartmentDelete, "department", departmentID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleMoveEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var payload struct {
		DepartmentID string `json:"departmentId"`
		ManagerID    string `json:"managerId"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	before, err := h.Service.GetEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		api.FailError(w, err, "employee_move_failed", reqID)
		return
	}
	if err := h.Service.MoveEmployee(r.Context(), user.TenantID, employeeID, payload.DepartmentID, payload.ManagerID); err != nil {
		api.FailError(w, err, "employee_move_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionEmployeeMove, "employee", employeeID,
		map[string]string{"departmentId": before.DepartmentID, "managerId": before.ManagerID}, payload)
	api.Success(w, map[string]string{"status": "moved"}, reqID)
}
