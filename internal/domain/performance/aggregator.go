package performance

import (
	"context"
	"fmt"
	"log/slog"
)

type Aggregator struct {
	store    StoreAPI
	weights  Weights
	observer BatchObserver
}

func NewAggregator(store StoreAPI, weights Weights) *Aggregator {
	return &Aggregator{store: store, weights: weights}
}

func (a *Aggregator) WithObserver(observer BatchObserver) *Aggregator {
	a.observer = observer
	return a
}

// Profile builds the gap analysis of one evaluatee without writing anything.
func (a *Aggregator) Profile(ctx context.Context, tenantID, cycleID, employeeID string) (Profile, error) {
	evaluations, err := a.store.CompletedEvaluations(ctx, tenantID, cycleID, employeeID)
	if err != nil {
		return Profile{}, fmt.Errorf("load evaluations: %w", err)
	}
	return BuildProfile(employeeID, evaluations, a.weights), nil
}

// AggregateEmployee writes the calculated score of one evaluatee onto its
// rating. A calibrated final score is left untouched. The bool reports
// whether anything was written.
func (a *Aggregator) AggregateEmployee(ctx context.Context, tenantID, cycleID, employeeID string) (Profile, bool, error) {
	profile, err := a.Profile(ctx, tenantID, cycleID, employeeID)
	if err != nil {
		return Profile{}, false, err
	}
	if len(profile.Competencies) == 0 {
		return profile, false, nil
	}
	rating, err := a.store.EnsureRating(ctx, tenantID, cycleID, employeeID)
	if err != nil {
		return profile, false, fmt.Errorf("ensure rating: %w", err)
	}
	rating.CalculatedScore = profile.OverallScore
	rating.Recompute()
	if err := a.store.UpdateRating(ctx, tenantID, rating); err != nil {
		return profile, false, fmt.Errorf("update rating: %w", err)
	}
	return profile, true, nil
}

// AggregateCycle runs AggregateEmployee for every evaluatee holding at least
// one completed assignment. Failures are isolated per evaluatee.
func (a *Aggregator) AggregateCycle(ctx context.Context, tenantID, cycleID string) (BatchResult, error) {
	evaluatees, err := a.store.EvaluateesWithCompleted(ctx, tenantID, cycleID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list evaluatees: %w", err)
	}
	var result BatchResult
	for _, employeeID := range evaluatees {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, written, err := a.AggregateEmployee(ctx, tenantID, cycleID, employeeID)
		switch {
		case err != nil:
			result.fail(employeeID, "", err)
		case written:
			result.Created++
		default:
			result.Skipped++
		}
	}
	if result.Failed > 0 {
		slog.Warn("aggregation finished with failures", "tenantId", tenantID, "cycleId", cycleID, "failed", result.Failed)
	}
	if a.observer != nil {
		a.observer.Batch("aggregate", result.Created, result.Skipped, result.Failed)
	}
	return result, nil
}
