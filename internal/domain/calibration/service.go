package calibration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/auth"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

type Directory interface {
	SubtreeResolver
	ListEmployees(ctx context.Context, tenantID string, filter org.EmployeeFilter) ([]org.Employee, error)
}

type Service struct {
	store     StoreAPI
	ratings   Ratings
	directory Directory
	Selector  *Selector
	announcer performance.Announcer
	now       func() time.Time
}

func NewService(store StoreAPI, ratings Ratings, directory Directory, builder *access.Builder, announcer performance.Announcer) *Service {
	return &Service{
		store:     store,
		ratings:   ratings,
		directory: directory,
		Selector:  NewSelector(store, directory, builder),
		announcer: announcer,
		now:       time.Now,
	}
}

type CreateSessionInput struct {
	CycleID       string          `json:"cycleId"`
	Name          string          `json:"name"`
	DepartmentIDs []string        `json:"departmentIds"`
	FilterMode    string          `json:"filterMode"`
	FilterConfig  json.RawMessage `json:"filterConfig"`
}

func (s *Service) CreateSession(ctx context.Context, scope access.Scope, in CreateSessionInput) (Session, error) {
	if err := access.Require(scope, auth.PermCalibrationManage); err != nil {
		return Session{}, err
	}
	session := Session{
		TenantID:      scope.TenantID,
		CycleID:       in.CycleID,
		Name:          strings.TrimSpace(in.Name),
		Status:        SessionStatusDraft,
		DepartmentIDs: in.DepartmentIDs,
		FilterMode:    in.FilterMode,
		FilterConfig:  in.FilterConfig,
		CreatedBy:     scope.UserEmail,
	}
	if session.Name == "" {
		return Session{}, ErrMissingName
	}
	if err := s.checkCycle(ctx, scope.TenantID, in.CycleID); err != nil {
		return Session{}, err
	}
	// resolves the filter, including department authorization
	if _, err := s.Selector.SelectCandidates(ctx, scope, session); err != nil {
		return Session{}, err
	}
	id, err := s.store.CreateSession(ctx, scope.TenantID, session)
	if err != nil {
		return Session{}, err
	}
	return s.store.GetSession(ctx, scope.TenantID, id)
}

func (s *Service) GetSession(ctx context.Context, scope access.Scope, sessionID string) (Session, error) {
	if err := access.Require(scope, auth.PermCalibrationRead); err != nil {
		return Session{}, err
	}
	return s.store.GetSession(ctx, scope.TenantID, sessionID)
}

func (s *Service) ListSessions(ctx context.Context, scope access.Scope, cycleID string) ([]Session, error) {
	if err := access.Require(scope, auth.PermCalibrationRead); err != nil {
		return nil, err
	}
	return s.store.ListSessions(ctx, scope.TenantID, cycleID)
}

// PreviewDraft previews a cohort rule before any session is saved.
func (s *Service) PreviewDraft(ctx context.Context, scope access.Scope, in CreateSessionInput) (Preview, error) {
	if err := access.Require(scope, auth.PermCalibrationRead); err != nil {
		return Preview{}, err
	}
	return s.Selector.Preview(ctx, scope, Session{
		TenantID:      scope.TenantID,
		CycleID:       in.CycleID,
		DepartmentIDs: in.DepartmentIDs,
		FilterMode:    in.FilterMode,
		FilterConfig:  in.FilterConfig,
	})
}

func (s *Service) PreviewSession(ctx context.Context, scope access.Scope, sessionID string) (Preview, error) {
	session, err := s.GetSession(ctx, scope, sessionID)
	if err != nil {
		return Preview{}, err
	}
	return s.Selector.Preview(ctx, scope, session)
}

// StartSession materializes the cohort as participants and opens the session.
// Participants that already exist are skipped, so a retried start converges.
func (s *Service) StartSession(ctx context.Context, scope access.Scope, sessionID string) (performance.BatchResult, error) {
	if err := access.Require(scope, auth.PermCalibrationManage); err != nil {
		return performance.BatchResult{}, err
	}
	session, err := s.store.GetSession(ctx, scope.TenantID, sessionID)
	if err != nil {
		return performance.BatchResult{}, err
	}
	if session.Status != SessionStatusDraft && session.Status != SessionStatusInProgress {
		return performance.BatchResult{}, fmt.Errorf("%w: session is %s", ErrSessionState, session.Status)
	}
	candidates, err := s.Selector.Candidates(ctx, scope, session)
	if err != nil {
		return performance.BatchResult{}, err
	}

	var result performance.BatchResult
	for _, c := range candidates {
		created, err := s.store.AddParticipant(ctx, scope.TenantID, Participant{
			SessionID:     session.ID,
			EmployeeID:    c.EmployeeID,
			OriginalScore: c.Score,
		})
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, performance.ItemError{EmployeeID: c.EmployeeID, Message: err.Error()})
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}
	if session.Status == SessionStatusDraft {
		if _, err := s.store.UpdateSessionStatus(ctx, scope.TenantID, session.ID, SessionStatusDraft, SessionStatusInProgress); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Service) ListParticipants(ctx context.Context, scope access.Scope, sessionID string) ([]Participant, error) {
	if err := access.Require(scope, auth.PermCalibrationRead); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, scope.TenantID, sessionID)
}

// AdjustRating overrides a participant's final score and recomputes its
// final level and 9-box cell.
func (s *Service) AdjustRating(ctx context.Context, scope access.Scope, sessionID, employeeID string, score float64, reason string) (performance.Rating, error) {
	if err := access.Require(scope, auth.PermCalibrationManage); err != nil {
		return performance.Rating{}, err
	}
	if score < performance.MinScore || score > performance.MaxScore {
		return performance.Rating{}, ErrInvalidScore
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return performance.Rating{}, ErrMissingReason
	}
	session, err := s.store.GetSession(ctx, scope.TenantID, sessionID)
	if err != nil {
		return performance.Rating{}, err
	}
	if session.Status != SessionStatusInProgress {
		return performance.Rating{}, fmt.Errorf("%w: session is %s", ErrSessionState, session.Status)
	}
	participant, err := s.store.GetParticipant(ctx, scope.TenantID, sessionID, employeeID)
	if err != nil {
		return performance.Rating{}, err
	}

	rating, err := s.ratings.GetRating(ctx, scope.TenantID, session.CycleID, employeeID)
	if err != nil {
		return performance.Rating{}, err
	}
	if rating.RatifiedAt != nil {
		return performance.Rating{}, fmt.Errorf("%w: employee %s", ErrRatified, employeeID)
	}
	final := score
	rating.FinalScore = &final
	rating.Recompute()
	if err := s.ratings.UpdateRating(ctx, scope.TenantID, rating); err != nil {
		return performance.Rating{}, err
	}

	now := s.now()
	participant.AdjustedScore = &final
	participant.Reason = reason
	participant.AdjustedBy = scope.UserEmail
	participant.AdjustedAt = &now
	if err := s.store.UpdateParticipant(ctx, scope.TenantID, participant); err != nil {
		return performance.Rating{}, err
	}
	return rating, nil
}

// CloseSession publishes the session and notifies its participants.
func (s *Service) CloseSession(ctx context.Context, scope access.Scope, sessionID string) (notifications.Report, error) {
	if err := access.Require(scope, auth.PermCalibrationManage); err != nil {
		return notifications.Report{}, err
	}
	session, err := s.store.GetSession(ctx, scope.TenantID, sessionID)
	if err != nil {
		return notifications.Report{}, err
	}
	ok, err := s.store.UpdateSessionStatus(ctx, scope.TenantID, sessionID, SessionStatusInProgress, SessionStatusClosed)
	if err != nil {
		return notifications.Report{}, err
	}
	if !ok {
		return notifications.Report{}, fmt.Errorf("%w: session is %s", ErrSessionState, session.Status)
	}
	if s.announcer == nil {
		return notifications.Report{}, nil
	}

	participants, err := s.store.ListParticipants(ctx, scope.TenantID, sessionID)
	if err != nil {
		slog.Warn("calibration participants lookup failed", "sessionId", sessionID, "err", err)
		return notifications.Report{}, nil
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.EmployeeID)
	}
	if len(ids) == 0 {
		return notifications.Report{}, nil
	}
	employees, err := s.directory.ListEmployees(ctx, scope.TenantID, org.EmployeeFilter{IDs: ids, ActiveOnly: true})
	if err != nil {
		slog.Warn("calibration recipients lookup failed", "sessionId", sessionID, "err", err)
		return notifications.Report{}, nil
	}
	messages := make([]notifications.Message, 0, len(employees))
	for _, e := range employees {
		messages = append(messages, notifications.Message{
			Recipient:  notifications.Recipient{TenantID: e.TenantID, UserID: e.UserID, Email: e.Email, Name: e.FullName},
			TemplateID: notifications.TemplateCalibrationClosed,
			Vars:       map[string]string{"name": e.FullName, "sessionName": session.Name},
		})
	}
	return s.announcer.Dispatch(ctx, messages), nil
}

func (s *Service) checkCycle(ctx context.Context, tenantID, cycleID string) error {
	cycle, err := s.ratings.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return err
	}
	if cycle.Status != performance.CycleStatusActive && cycle.Status != performance.CycleStatusInReview {
		return fmt.Errorf("%w: cycle is %s", ErrCycleNotOpen, cycle.Status)
	}
	return nil
}
