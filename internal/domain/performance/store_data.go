package performance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/querier"
)

const cycleColumns = `id, tenant_id, name, start_date, end_date, status,
           includes_self, includes_manager, includes_peer, includes_upward,
           min_subordinates, max_peers, COALESCE(department_ids, '{}'), COALESCE(campaign_id::text, ''),
           competency_snapshot, created_at`

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	var snapshot []byte
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.StartDate, &c.EndDate, &c.Status,
		&c.IncludesSelf, &c.IncludesManager, &c.IncludesPeer, &c.IncludesUpward,
		&c.MinSubordinates, &c.MaxPeers, &c.DepartmentIDs, &c.CampaignID,
		&snapshot, &c.CreatedAt)
	if err != nil {
		return Cycle{}, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &c.CompetencySnapshot); err != nil {
			return Cycle{}, fmt.Errorf("decode competency snapshot: %w", err)
		}
	}
	return c, nil
}

func (s *Store) CreateCycle(ctx context.Context, tenantID string, cycle Cycle) (string, error) {
	snapshot, err := json.Marshal(cycle.CompetencySnapshot)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO performance_cycles (tenant_id, name, start_date, end_date, status,
      includes_self, includes_manager, includes_peer, includes_upward,
      min_subordinates, max_peers, department_ids, campaign_id, competency_snapshot)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING id
  `, tenantID, cycle.Name, cycle.StartDate, cycle.EndDate, cycle.Status,
		cycle.IncludesSelf, cycle.IncludesManager, cycle.IncludesPeer, cycle.IncludesUpward,
		cycle.MinSubordinates, cycle.MaxPeers, cycle.DepartmentIDs, nullIfEmpty(cycle.CampaignID), snapshot).Scan(&id)
	return id, err
}

func (s *Store) GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	c, err := scanCycle(s.DB.QueryRow(ctx, `SELECT `+cycleColumns+` FROM performance_cycles WHERE tenant_id = $1 AND id = $2`, tenantID, cycleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrNotFound
	}
	return c, err
}

func (s *Store) ListCycles(ctx context.Context, tenantID string) ([]Cycle, error) {
	return s.cycles(ctx, `SELECT `+cycleColumns+` FROM performance_cycles WHERE tenant_id = $1 ORDER BY start_date DESC, created_at DESC`, tenantID)
}

func (s *Store) DueScheduledCycles(ctx context.Context, asOf time.Time) ([]Cycle, error) {
	return s.cycles(ctx, `SELECT `+cycleColumns+` FROM performance_cycles WHERE status = $1 AND start_date <= $2 ORDER BY start_date`, CycleStatusScheduled, asOf)
}

func (s *Store) cycles(ctx context.Context, query string, args ...any) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Cycle{}
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCycleStatus(ctx context.Context, tenantID, cycleID, from, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE performance_cycles SET status = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, to, tenantID, cycleID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteCycle relies on ON DELETE CASCADE for assignments, responses and ratings.
func (s *Store) DeleteCycle(ctx context.Context, tenantID, cycleID string, allowedStatuses []string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM performance_cycles
    WHERE tenant_id = $1 AND id = $2 AND status = ANY($3)
  `, tenantID, cycleID, allowedStatuses)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AssignmentExists(ctx context.Context, tenantID string, key AssignmentKey) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM evaluation_assignments
      WHERE tenant_id = $1 AND cycle_id = $2 AND evaluator_id = $3 AND evaluatee_id = $4 AND evaluation_type = $5
    )
  `, tenantID, key.CycleID, key.EvaluatorID, key.EvaluateeID, key.Type).Scan(&exists)
	return exists, err
}

func (s *Store) CreateAssignment(ctx context.Context, tenantID string, a Assignment) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_assignments (tenant_id, cycle_id, evaluator_id, evaluatee_id, evaluation_type, status, due_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, a.CycleID, a.EvaluatorID, a.EvaluateeID, a.Type, a.Status, a.DueDate).Scan(&id)
	if querier.IsUniqueViolation(err) {
		return "", ErrDuplicate
	}
	return id, err
}

const assignmentColumns = `a.id, a.tenant_id, a.cycle_id, a.evaluator_id, a.evaluatee_id, a.evaluation_type, a.status, a.due_date, a.completed_at`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.TenantID, &a.CycleID, &a.EvaluatorID, &a.EvaluateeID, &a.Type, &a.Status, &a.DueDate, &a.CompletedAt)
	return a, err
}

func (s *Store) GetAssignment(ctx context.Context, tenantID, assignmentID string) (Assignment, error) {
	a, err := scanAssignment(s.DB.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM evaluation_assignments a WHERE a.tenant_id = $1 AND a.id = $2`, tenantID, assignmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

func (s *Store) ListAssignments(ctx context.Context, tenantID string, q AssignmentQuery) ([]Assignment, error) {
	where, args := q.Filter.Where("e.tenant_id", "e.department_id", nil)
	conds := []string{where}
	args = append(args, tenantID)
	conds = append(conds, fmt.Sprintf("a.tenant_id = $%d", len(args)))
	if q.CycleID != "" {
		args = append(args, q.CycleID)
		conds = append(conds, fmt.Sprintf("a.cycle_id = $%d", len(args)))
	}
	if q.EvaluatorID != "" {
		args = append(args, q.EvaluatorID)
		conds = append(conds, fmt.Sprintf("a.evaluator_id = $%d", len(args)))
	}
	if q.EvaluateeID != "" {
		args = append(args, q.EvaluateeID)
		conds = append(conds, fmt.Sprintf("a.evaluatee_id = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		conds = append(conds, fmt.Sprintf("a.status = $%d", len(args)))
	}
	rows, err := s.DB.Query(ctx, `
    SELECT `+assignmentColumns+`
    FROM evaluation_assignments a
    JOIN employees e ON e.id = a.evaluatee_id
    WHERE `+strings.Join(conds, " AND ")+`
    ORDER BY a.due_date, a.id
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveResponses replaces the assignment's responses and completes it.
func (s *Store) SaveResponses(ctx context.Context, tenantID, assignmentID string, responses []Response, completedAt time.Time) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		tag, err := q.Exec(ctx, `
      UPDATE evaluation_assignments SET status = $1, completed_at = $2
      WHERE tenant_id = $3 AND id = $4 AND status IN ($5, $6)
    `, AssignmentStatusCompleted, completedAt, tenantID, assignmentID, AssignmentStatusPending, AssignmentStatusInProgress)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAssignmentClosed
		}
		if _, err := q.Exec(ctx, `DELETE FROM evaluation_responses WHERE assignment_id = $1`, assignmentID); err != nil {
			return err
		}
		for _, r := range responses {
			if _, err := q.Exec(ctx, `
        INSERT INTO evaluation_responses (assignment_id, competency_code, score, comment)
        VALUES ($1,$2,$3,$4)
      `, assignmentID, r.CompetencyCode, r.Score, nullIfEmpty(r.Comment)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CompletedEvaluations(ctx context.Context, tenantID, cycleID, evaluateeID string) ([]RaterScores, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.evaluator_id, a.evaluation_type, r.competency_code, r.score
    FROM evaluation_assignments a
    JOIN evaluation_responses r ON r.assignment_id = a.id
    WHERE a.tenant_id = $1 AND a.cycle_id = $2 AND a.evaluatee_id = $3 AND a.status = $4
    ORDER BY a.id
  `, tenantID, cycleID, evaluateeID, AssignmentStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RaterScores
	index := map[string]int{}
	for rows.Next() {
		var assignmentID, evaluatorID, typ, code string
		var score float64
		if err := rows.Scan(&assignmentID, &evaluatorID, &typ, &code, &score); err != nil {
			return nil, err
		}
		i, ok := index[assignmentID]
		if !ok {
			i = len(out)
			index[assignmentID] = i
			out = append(out, RaterScores{AssignmentID: assignmentID, EvaluatorID: evaluatorID, Type: typ, Scores: map[string]float64{}})
		}
		out[i].Scores[code] = score
	}
	return out, rows.Err()
}

func (s *Store) EvaluateesWithCompleted(ctx context.Context, tenantID, cycleID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT evaluatee_id
    FROM evaluation_assignments
    WHERE tenant_id = $1 AND cycle_id = $2 AND status = $3
    ORDER BY evaluatee_id
  `, tenantID, cycleID, AssignmentStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const ratingColumns = `r.id, r.tenant_id, r.cycle_id, r.employee_id, e.full_name, COALESCE(e.department_id::text, ''),
           r.calculated_score, COALESCE(r.calculated_level, ''), r.final_score, COALESCE(r.final_level, ''),
           r.aspiration, r.ability, r.engagement, r.potential_score, COALESCE(r.potential_level, ''),
           COALESCE(r.nine_box_position, ''), r.ratified_at, r.updated_at`

func scanRating(row pgx.Row) (Rating, error) {
	var r Rating
	err := row.Scan(&r.ID, &r.TenantID, &r.CycleID, &r.EmployeeID, &r.EmployeeName, &r.DepartmentID,
		&r.CalculatedScore, &r.CalculatedLevel, &r.FinalScore, &r.FinalLevel,
		&r.Aspiration, &r.Ability, &r.Engagement, &r.PotentialScore, &r.PotentialLevel,
		&r.NineBoxPosition, &r.RatifiedAt, &r.UpdatedAt)
	return r, err
}

// EnsureRating lazily creates the (cycle, employee) rating with a zero score.
func (s *Store) EnsureRating(ctx context.Context, tenantID, cycleID, employeeID string) (Rating, error) {
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO performance_ratings (tenant_id, cycle_id, employee_id, calculated_score)
    VALUES ($1,$2,$3,0)
    ON CONFLICT (cycle_id, employee_id) DO NOTHING
  `, tenantID, cycleID, employeeID); err != nil {
		return Rating{}, err
	}
	return s.GetRating(ctx, tenantID, cycleID, employeeID)
}

func (s *Store) GetRating(ctx context.Context, tenantID, cycleID, employeeID string) (Rating, error) {
	r, err := scanRating(s.DB.QueryRow(ctx, `
    SELECT `+ratingColumns+`
    FROM performance_ratings r
    JOIN employees e ON e.id = r.employee_id
    WHERE r.tenant_id = $1 AND r.cycle_id = $2 AND r.employee_id = $3
  `, tenantID, cycleID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{}, ErrNotFound
	}
	return r, err
}

func (s *Store) UpdateRating(ctx context.Context, tenantID string, r Rating) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE performance_ratings
    SET calculated_score = $1, calculated_level = $2, final_score = $3, final_level = $4,
        aspiration = $5, ability = $6, engagement = $7, potential_score = $8, potential_level = $9,
        nine_box_position = $10, ratified_at = $11, updated_at = now()
    WHERE tenant_id = $12 AND id = $13
  `, r.CalculatedScore, nullIfEmpty(r.CalculatedLevel), r.FinalScore, nullIfEmpty(r.FinalLevel),
		r.Aspiration, r.Ability, r.Engagement, r.PotentialScore, nullIfEmpty(r.PotentialLevel),
		nullIfEmpty(r.NineBoxPosition), r.RatifiedAt, tenantID, r.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListRatings(ctx context.Context, tenantID string, q RatingQuery) ([]Rating, error) {
	where, args := q.Filter.Where("e.tenant_id", "e.department_id", nil)
	args = append(args, tenantID, q.CycleID)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT `+ratingColumns+`
    FROM performance_ratings r
    JOIN employees e ON e.id = r.employee_id
    WHERE %s AND r.tenant_id = $%d AND r.cycle_id = $%d
    ORDER BY COALESCE(r.final_score, r.calculated_score) DESC, e.full_name
  `, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Rating{}
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListCompetencies(ctx context.Context, tenantID string) ([]Competency, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT code, name, COALESCE(description, ''), category, audience, sort_order
    FROM competencies
    WHERE tenant_id = $1 AND active
    ORDER BY sort_order, code
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Competency{}
	for rows.Next() {
		var c Competency
		var audience []byte
		if err := rows.Scan(&c.Code, &c.Name, &c.Description, &c.Category, &audience, &c.SortOrder); err != nil {
			return nil, err
		}
		if len(audience) > 0 {
			if err := json.Unmarshal(audience, &c.Audience); err != nil {
				return nil, fmt.Errorf("decode audience of %s: %w", c.Code, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCompetency(ctx context.Context, tenantID string, c Competency) error {
	audience, err := json.Marshal(c.Audience)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO competencies (tenant_id, code, name, description, category, audience, sort_order)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, tenantID, c.Code, c.Name, nullIfEmpty(c.Description), c.Category, audience, c.SortOrder)
	if querier.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
