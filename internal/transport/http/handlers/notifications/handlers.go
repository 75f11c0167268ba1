package notificationshandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/audit"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/api"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/middleware"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/", h.handleList)
		r.Get("/count", h.handleCount)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Get("/settings", h.handleSettings)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Put("/settings", h.handleUpdateSettings)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 100, 500)
	total, err := h.Service.Count(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("notification count failed", "err", err)
	}

	items, err := h.Service.List(r.Context(), user.TenantID, user.UserID, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, "notification_list_failed", reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, reqID)
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	total, err := h.Service.Count(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.FailError(w, err, "notification_count_failed", reqID)
		return
	}
	api.Success(w, map[string]int{"total": total}, reqID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, notificationID); err != nil {
		api.FailError(w, err, "notification_update_failed", reqID)
		return
	}

	api.Success(w, map[string]string{"status": "read"}, reqID)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	enabled, from, err := h.Service.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		api.FailError(w, err, "settings_failed", reqID)
		return
	}
	api.Success(w, map[string]any{"emailEnabled": enabled, "emailFrom": from}, reqID)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		EmailEnabled bool   `json:"emailEnabled"`
		EmailFrom    string `json:"emailFrom"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	if payload.EmailEnabled {
		v.Required("emailFrom", payload.EmailFrom, "is required when email is enabled")
	}
	if payload.EmailFrom != "" && !strings.Contains(payload.EmailFrom, "@") {
		v.Add("emailFrom", "must be an email address")
	}
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Service.UpdateSettings(r.Context(), user.TenantID, payload.EmailEnabled, payload.EmailFrom); err != nil {
		api.FailError(w, err, "settings_failed", reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionSettingsUpdate, "tenant_settings", user.TenantID, nil, payload)
	api.Success(w, map[string]string{"status": "updated"}, reqID)
}
