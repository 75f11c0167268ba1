package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

const (
	JobActivateDue = "cycle_activation"
	JobGenerate    = "assignment_generation"
	JobAggregate   = "aggregation"
	JobRatify      = "ratification"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunStore records job runs. Recording is best effort; a failing store never
// blocks the job itself.
type RunStore interface {
	StartRun(ctx context.Context, tenantID, jobType string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
	ListRuns(ctx context.Context, tenantID string, limit int) ([]Run, error)
}

// Activator promotes scheduled cycles whose start date has passed.
type Activator interface {
	ActivateDue(ctx context.Context, asOf time.Time) (performance.BatchResult, error)
}

type Observer interface {
	Job(jobType string, err error)
}

type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type Service struct {
	runs      RunStore
	activator Activator
	interval  time.Duration
	observer  Observer
	queue     chan job
	wg        sync.WaitGroup
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(runs RunStore, activator Activator, interval time.Duration, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Service{
		runs:      runs,
		activator: activator,
		interval:  interval,
		queue:     make(chan job, queueSize),
	}
}

func (s *Service) WithObserver(observer Observer) *Service {
	s.observer = observer
	return s
}

// Start runs the queue worker and the activation scheduler until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	if s.activator != nil && s.interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.scheduleActivation(ctx, s.interval)
		}()
	}
}

// Wait blocks until the goroutines started by Start have returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue reports false when the queue is full and the job was dropped.
func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) Runs(ctx context.Context, tenantID string, limit int) ([]Run, error) {
	if s.runs == nil {
		return []Run{}, nil
	}
	return s.runs.ListRuns(ctx, tenantID, limit)
}

// ActivateDue runs one activation pass immediately.
func (s *Service) ActivateDue(ctx context.Context, asOf time.Time) (performance.BatchResult, error) {
	details, err := s.RunNow(ctx, JobActivateDue, "", func(ctx context.Context) (any, error) {
		return s.activator.ActivateDue(ctx, asOf)
	})
	res, _ := details.(performance.BatchResult)
	return res, err
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.runs != nil {
		id, err := s.runs.StartRun(ctx, j.TenantID, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status, recorded := StatusCompleted, details
	if err != nil {
		status = StatusFailed
		recorded = map[string]any{"error": err.Error(), "result": details}
	}
	if s.observer != nil {
		s.observer.Job(j.Type, err)
	}

	if runID != "" {
		detailsJSON, marshalErr := json.Marshal(recorded)
		if marshalErr != nil {
			slog.Warn("job details marshal failed", "err", marshalErr)
			detailsJSON = []byte("{}")
		}
		if updErr := s.runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "jobType", j.Type, "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleActivation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			res, err := s.ActivateDue(ctx, now)
			if err != nil {
				slog.Warn("cycle activation pass failed", "err", err)
				continue
			}
			if res.Created > 0 || res.Failed > 0 {
				slog.Info("cycle activation pass", "activated", res.Created, "failed", res.Failed)
			}
		}
	}
}
