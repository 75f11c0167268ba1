package performance

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/access"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/notifications"
	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
)

const (
	HandlerCampaignActivation     = "campaign_activation"
	HandlerAssignmentGeneration   = "assignment_generation"
	HandlerAssignmentNotification = "assignment_notification"
	HandlerAggregation            = "aggregation"
	HandlerReportNotification     = "report_notification"
)

// Announcer sends a batch of notifications sequentially.
type Announcer interface {
	Dispatch(ctx context.Context, messages []notifications.Message) notifications.Report
}

// RegisterHandlers binds the transition side effects. campaigns and announcer may be nil.
// Notification handlers go to the queue set with Events.UseQueue, since the
// announcer paces its sends.
func (s *Service) RegisterHandlers(campaigns CampaignActivator, announcer Announcer) {
	if campaigns != nil {
		s.Events.Subscribe(CycleStatusActive, HandlerCampaignActivation, func(ctx context.Context, ev TransitionEvent) error {
			return activateCampaign(ctx, campaigns, ev)
		})
	}
	s.Events.Subscribe(CycleStatusActive, HandlerAssignmentGeneration, func(ctx context.Context, ev TransitionEvent) error {
		res, err := s.Generator.Generate(ctx, ev.Cycle)
		if err != nil {
			return err
		}
		return batchError("assignments", res)
	})
	if announcer != nil {
		s.Events.SubscribeQueued(CycleStatusActive, HandlerAssignmentNotification, func(ctx context.Context, ev TransitionEvent) error {
			return s.notifyEvaluators(ctx, announcer, ev.Cycle)
		})
	}
	s.Events.Subscribe(CycleStatusInReview, HandlerAggregation, func(ctx context.Context, ev TransitionEvent) error {
		res, err := s.Aggregator.AggregateCycle(ctx, ev.TenantID, ev.Cycle.ID)
		if err != nil {
			return err
		}
		return batchError("ratings", res)
	})
	if announcer != nil {
		s.Events.SubscribeQueued(CycleStatusCompleted, HandlerReportNotification, func(ctx context.Context, ev TransitionEvent) error {
			return s.notifyRated(ctx, announcer, ev.Cycle)
		})
	}
}

func activateCampaign(ctx context.Context, campaigns CampaignActivator, ev TransitionEvent) error {
	if ev.Cycle.CampaignID == "" {
		return nil
	}
	status, err := campaigns.CampaignStatus(ctx, ev.TenantID, ev.Cycle.CampaignID)
	if err != nil {
		return fmt.Errorf("campaign status: %w", err)
	}
	if status != CampaignStatusDraft {
		return nil
	}
	return campaigns.ActivateCampaign(ctx, ev.TenantID, ev.Cycle.CampaignID)
}

func (s *Service) notifyEvaluators(ctx context.Context, announcer Announcer, cycle Cycle) error {
	assignments, err := s.store.ListAssignments(ctx, cycle.TenantID, AssignmentQuery{
		CycleID: cycle.ID,
		Status:  AssignmentStatusPending,
		Filter:  access.Internal(cycle.TenantID),
	})
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, a := range assignments {
		counts[a.EvaluatorID]++
	}
	recipients, err := s.recipients(ctx, cycle.TenantID, keys(counts))
	if err != nil {
		return err
	}
	messages := make([]notifications.Message, 0, len(recipients))
	for _, emp := range recipients {
		messages = append(messages, notifications.Message{
			Recipient:  recipient(emp),
			TemplateID: notifications.TemplateEvaluationAssigned,
			Vars: map[string]string{
				"name":      emp.FullName,
				"cycleName": cycle.Name,
				"count":     strconv.Itoa(counts[emp.ID]),
				"dueDate":   cycle.EndDate.Format("2006-01-02"),
			},
		})
	}
	return reportError(announcer.Dispatch(ctx, messages))
}

func (s *Service) notifyRated(ctx context.Context, announcer Announcer, cycle Cycle) error {
	ratings, err := s.store.ListRatings(ctx, cycle.TenantID, RatingQuery{CycleID: cycle.ID, Filter: access.Internal(cycle.TenantID)})
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(ratings))
	for _, r := range ratings {
		ids = append(ids, r.EmployeeID)
	}
	recipients, err := s.recipients(ctx, cycle.TenantID, ids)
	if err != nil {
		return err
	}
	messages := make([]notifications.Message, 0, len(recipients))
	for _, emp := range recipients {
		messages = append(messages, notifications.Message{
			Recipient:  recipient(emp),
			TemplateID: notifications.TemplateReportReady,
			Vars:       map[string]string{"name": emp.FullName, "cycleName": cycle.Name},
		})
	}
	return reportError(announcer.Dispatch(ctx, messages))
}

func (s *Service) recipients(ctx context.Context, tenantID string, ids []string) ([]org.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	employees, err := s.directory.ListEmployees(ctx, tenantID, org.EmployeeFilter{IDs: ids, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].ID < employees[j].ID })
	return employees, nil
}

func recipient(emp org.Employee) notifications.Recipient {
	return notifications.Recipient{TenantID: emp.TenantID, UserID: emp.UserID, Email: emp.Email, Name: emp.FullName}
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func batchError(what string, res BatchResult) error {
	if res.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d %s failed (%d created, %d skipped)", res.Failed, what, res.Created, res.Skipped)
}

func reportError(report notifications.Report) error {
	if report.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d notifications failed", report.Failed, report.Failed+report.Sent)
}
