package calibration

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/querier"
)

const candidateFrom = `
    FROM employees e
    JOIN performance_ratings r ON r.employee_id = e.id AND r.tenant_id = e.tenant_id
  `

func (s *Store) CountCandidates(ctx context.Context, pred Predicate) (int, error) {
	where, args := pred.Where(nil)
	var total int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(1)`+candidateFrom+`WHERE `+where, args...).Scan(&total)
	return total, err
}

func (s *Store) ListCandidates(ctx context.Context, pred Predicate, limit int) ([]Candidate, error) {
	where, args := pred.Where(nil)
	query := `
    SELECT e.id, e.full_name, COALESCE(e.department_id::text, ''), COALESCE(e.manager_id::text, ''),
           COALESCE(e.position, ''), e.standard_job_level,
           COALESCE(r.final_score, r.calculated_score), COALESCE(r.nine_box_position, '')` + candidateFrom + `WHERE ` + where + `
    ORDER BY e.full_name, e.id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Candidate{}
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.EmployeeID, &c.FullName, &c.DepartmentID, &c.ManagerID, &c.Position, &c.StandardJobLevel, &c.Score, &c.NineBoxPosition); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const sessionColumns = `id, tenant_id, cycle_id, name, status, COALESCE(department_ids, '{}'),
           COALESCE(filter_mode, ''), filter_config, COALESCE(created_by, ''), created_at, closed_at`

func scanSession(row pgx.Row) (Session, error) {
	var sess Session
	var config []byte
	err := row.Scan(&sess.ID, &sess.TenantID, &sess.CycleID, &sess.Name, &sess.Status, &sess.DepartmentIDs,
		&sess.FilterMode, &config, &sess.CreatedBy, &sess.CreatedAt, &sess.ClosedAt)
	if len(config) > 0 {
		sess.FilterConfig = config
	}
	return sess, err
}

func (s *Store) CreateSession(ctx context.Context, tenantID string, sess Session) (string, error) {
	var config any
	if len(sess.FilterConfig) > 0 {
		config = []byte(sess.FilterConfig)
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO calibration_sessions (tenant_id, cycle_id, name, status, department_ids, filter_mode, filter_config, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, tenantID, sess.CycleID, sess.Name, sess.Status, sess.DepartmentIDs, nullIfEmpty(sess.FilterMode), config, nullIfEmpty(sess.CreatedBy)).Scan(&id)
	return id, err
}

func (s *Store) GetSession(ctx context.Context, tenantID, sessionID string) (Session, error) {
	sess, err := scanSession(s.DB.QueryRow(ctx, `SELECT `+sessionColumns+` FROM calibration_sessions WHERE tenant_id = $1 AND id = $2`, tenantID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return sess, err
}

func (s *Store) ListSessions(ctx context.Context, tenantID, cycleID string) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM calibration_sessions WHERE tenant_id = $1`
	args := []any{tenantID}
	if cycleID != "" {
		query += " AND cycle_id = $2"
		args = append(args, cycleID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSessionStatus(ctx context.Context, tenantID, sessionID, from, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE calibration_sessions
    SET status = $1, closed_at = CASE WHEN $1 = 'closed' THEN now() ELSE closed_at END
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, to, tenantID, sessionID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AddParticipant(ctx context.Context, tenantID string, p Participant) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO calibration_participants (session_id, employee_id, original_score)
    SELECT id, $3, $4 FROM calibration_sessions WHERE tenant_id = $1 AND id = $2
    ON CONFLICT (session_id, employee_id) DO NOTHING
  `, tenantID, p.SessionID, p.EmployeeID, p.OriginalScore)
	if querier.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const participantColumns = `p.session_id, p.employee_id, e.full_name, COALESCE(e.department_id::text, ''),
           p.original_score, p.adjusted_score, COALESCE(p.reason, ''), COALESCE(p.adjusted_by, ''), p.adjusted_at`

const participantFrom = `
    FROM calibration_participants p
    JOIN calibration_sessions s ON s.id = p.session_id
    JOIN employees e ON e.id = p.employee_id
  `

func scanParticipant(row pgx.Row) (Participant, error) {
	var p Participant
	err := row.Scan(&p.SessionID, &p.EmployeeID, &p.EmployeeName, &p.DepartmentID,
		&p.OriginalScore, &p.AdjustedScore, &p.Reason, &p.AdjustedBy, &p.AdjustedAt)
	return p, err
}

func (s *Store) GetParticipant(ctx context.Context, tenantID, sessionID, employeeID string) (Participant, error) {
	p, err := scanParticipant(s.DB.QueryRow(ctx, `SELECT `+participantColumns+participantFrom+`
    WHERE s.tenant_id = $1 AND p.session_id = $2 AND p.employee_id = $3
  `, tenantID, sessionID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, ErrNotParticipant
	}
	return p, err
}

func (s *Store) ListParticipants(ctx context.Context, tenantID, sessionID string) ([]Participant, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+participantColumns+participantFrom+`
    WHERE s.tenant_id = $1 AND p.session_id = $2
    ORDER BY e.full_name, p.employee_id
  `, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateParticipant(ctx context.Context, tenantID string, p Participant) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE calibration_participants p
    SET adjusted_score = $1, reason = $2, adjusted_by = $3, adjusted_at = $4
    FROM calibration_sessions s
    WHERE s.id = p.session_id AND s.tenant_id = $5 AND p.session_id = $6 AND p.employee_id = $7
  `, p.AdjustedScore, nullIfEmpty(p.Reason), nullIfEmpty(p.AdjustedBy), p.AdjustedAt, tenantID, p.SessionID, p.EmployeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotParticipant
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
