package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/performance"
)

type memRuns struct {
	mu       sync.Mutex
	runs     []Run
	tenants  []string
	startErr error
}

func (m *memRuns) StartRun(ctx context.Context, tenantID, jobType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return "", m.startErr
	}
	id := fmt.Sprintf("run-%d", len(m.runs)+1)
	m.runs = append(m.runs, Run{ID: id, JobType: jobType, Status: StatusRunning, StartedAt: time.Now()})
	m.tenants = append(m.tenants, tenantID)
	return id, nil
}

func (m *memRuns) FinishRun(ctx context.Context, runID, status string, details []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == runID {
			now := time.Now()
			m.runs[i].Status = status
			m.runs[i].Details = details
			m.runs[i].CompletedAt = &now
			return nil
		}
	}
	return errors.New("unknown run")
}

func (m *memRuns) ListRuns(ctx context.Context, tenantID string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Run
	for i, r := range m.runs {
		if m.tenants[i] == tenantID || m.tenants[i] == "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRuns) snapshot() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Run(nil), m.runs...)
}

type activatorFunc func(ctx context.Context, asOf time.Time) (performance.BatchResult, error)

func (f activatorFunc) ActivateDue(ctx context.Context, asOf time.Time) (performance.BatchResult, error) {
	return f(ctx, asOf)
}

type jobCounter struct {
	mu      sync.Mutex
	results map[string][]bool
}

func (c *jobCounter) Job(jobType string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string][]bool{}
	}
	c.results[jobType] = append(c.results[jobType], err == nil)
}

func TestRunNowRecordsCompletedRun(t *testing.T) {
	runs := &memRuns{}
	obs := &jobCounter{}
	svc := New(runs, nil, 0, 0).WithObserver(obs)

	details, err := svc.RunNow(context.Background(), JobAggregate, "t1", func(ctx context.Context) (any, error) {
		return performance.BatchResult{Created: 3, Skipped: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, performance.BatchResult{Created: 3, Skipped: 1}, details)

	recorded := runs.snapshot()
	require.Len(t, recorded, 1)
	assert.Equal(t, StatusCompleted, recorded[0].Status)
	assert.Equal(t, JobAggregate, recorded[0].JobType)
	var got performance.BatchResult
	require.NoError(t, json.Unmarshal(recorded[0].Details, &got))
	assert.Equal(t, 3, got.Created)
	assert.Equal(t, []bool{true}, obs.results[JobAggregate])
}

func TestRunNowRecordsFailureAndKeepsResult(t *testing.T) {
	runs := &memRuns{}
	boom := errors.New("boom")

	details, err := New(runs, nil, 0, 0).RunNow(context.Background(), JobGenerate, "t1", func(ctx context.Context) (any, error) {
		return performance.BatchResult{Failed: 2}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, performance.BatchResult{Failed: 2}, details)

	recorded := runs.snapshot()
	require.Len(t, recorded, 1)
	assert.Equal(t, StatusFailed, recorded[0].Status)
	assert.Contains(t, string(recorded[0].Details), `"error":"boom"`)
}

func TestRunNowSurvivesRunStoreFailure(t *testing.T) {
	runs := &memRuns{startErr: errors.New("db down")}
	ran := false
	_, err := New(runs, nil, 0, 0).RunNow(context.Background(), JobRatify, "t1", func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, runs.snapshot())
}

func TestRunsWithoutStore(t *testing.T) {
	runs, err := New(nil, nil, 0, 0).Runs(context.Background(), "t1", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := &memRuns{}
	svc := New(runs, nil, 0, 4)
	svc.Start(ctx)

	done := make(chan string, 1)
	require.True(t, svc.Enqueue(JobAggregate, "t1", func(ctx context.Context) (any, error) {
		done <- "ran"
		return nil, nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}

	cancel()
	svc.Wait()
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	svc := New(nil, nil, 0, 1)
	noop := func(ctx context.Context) (any, error) { return nil, nil }
	require.True(t, svc.Enqueue(JobAggregate, "t1", noop))
	assert.False(t, svc.Enqueue(JobAggregate, "t1", noop))
}

func TestActivationScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan time.Time, 8)
	activator := activatorFunc(func(ctx context.Context, asOf time.Time) (performance.BatchResult, error) {
		select {
		case calls <- asOf:
		default:
		}
		return performance.BatchResult{Created: 1}, nil
	})
	runs := &memRuns{}
	svc := New(runs, activator, 10*time.Millisecond, 0)
	svc.Start(ctx)

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("activation pass never ran")
	}
	cancel()
	svc.Wait()

	recorded := runs.snapshot()
	require.NotEmpty(t, recorded)
	assert.Equal(t, JobActivateDue, recorded[0].JobType)
}

func TestActivateDueReturnsBatch(t *testing.T) {
	activator := activatorFunc(func(ctx context.Context, asOf time.Time) (performance.BatchResult, error) {
		return performance.BatchResult{Created: 2, Skipped: 1}, nil
	})
	res, err := New(nil, activator, 0, 0).ActivateDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
}
