package memstore

import (
	"context"
	"time"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/jobs"
)

type tenantRun struct {
	tenantID string
	run      jobs.Run
}

var _ jobs.RunStore = (*Store)(nil)

func (s *Store) StartRun(ctx context.Context, tenantID, jobType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.runs = append(s.runs, tenantRun{tenantID: tenantID, run: jobs.Run{
		ID: id, JobType: jobType, Status: jobs.StatusRunning, StartedAt: time.Now(),
	}})
	return id, nil
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, details []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].run.ID != runID {
			continue
		}
		now := time.Now()
		s.runs[i].run.Status = status
		s.runs[i].run.Details = append([]byte(nil), details...)
		s.runs[i].run.CompletedAt = &now
		return nil
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, tenantID string, limit int) ([]jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []jobs.Run{}
	for i := len(s.runs) - 1; i >= 0; i-- {
		tr := s.runs[i]
		if tr.tenantID != tenantID && tr.tenantID != "" {
			continue
		}
		out = append(out, tr.run)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
