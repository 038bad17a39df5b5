package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// CreatePlan inserts a new plan version with its sections and initial
// change log.
func (s *Store) CreatePlan(p *model.Plan) error {
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	changeLog, err := json.Marshal(orEmptyLog(p.ChangeLog))
	if err != nil {
		return fmt.Errorf("marshal change log: %w", err)
	}
	status := p.Status
	if status == "" {
		status = model.PlanDraft
	}
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO account_plans (account_id, title, sections, status, change_log, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.AccountID, p.Title, string(sections), string(status), string(changeLog),
		formatTime(ts), formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("plan id: %w", err)
	}
	p.ID = id
	p.Status = status
	p.CreatedAt = ts.UTC()
	p.UpdatedAt = ts.UTC()
	return nil
}

const planColumns = `id, account_id, title, sections, status, change_log, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*model.Plan, error) {
	var p model.Plan
	var sections, status, changeLog, created, updated string
	err := row.Scan(&p.ID, &p.AccountID, &p.Title, &sections, &status, &changeLog, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.Status = model.PlanStatus(status)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	if err := json.Unmarshal([]byte(sections), &p.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	if err := json.Unmarshal([]byte(changeLog), &p.ChangeLog); err != nil {
		return nil, fmt.Errorf("unmarshal change log: %w", err)
	}
	return &p, nil
}

// GetPlan returns the plan with the given id.
func (s *Store) GetPlan(id int64) (*model.Plan, error) {
	row := s.db.QueryRow(`SELECT `+planColumns+` FROM account_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// LatestPlan returns the newest plan for an account, or nil when the
// account has no plans yet.
func (s *Store) LatestPlan(accountID int64) (*model.Plan, error) {
	row := s.db.QueryRow(
		`SELECT `+planColumns+` FROM account_plans WHERE account_id = ? ORDER BY id DESC LIMIT 1`,
		accountID,
	)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest plan: %w", err)
	}
	return p, nil
}

// ListPlans returns all plans for an account, newest first.
func (s *Store) ListPlans(accountID int64) ([]*model.Plan, error) {
	rows, err := s.db.Query(
		`SELECT `+planColumns+` FROM account_plans WHERE account_id = ? ORDER BY id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// UpdatePlanStatus moves a plan between draft, completed, and archived.
func (s *Store) UpdatePlanStatus(id int64, status model.PlanStatus) error {
	switch status {
	case model.PlanDraft, model.PlanCompleted, model.PlanArchived:
	default:
		return model.Validationf("unknown plan status %q", status)
	}
	res, err := s.db.Exec(
		`UPDATE account_plans SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(now()), id,
	)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("plan %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// ArchiveOldPlans archives all but the keepLatest newest non-archived
// plans for an account and returns the archived ids.
func (s *Store) ArchiveOldPlans(accountID int64, keepLatest int) ([]int64, error) {
	if keepLatest < 0 {
		keepLatest = 0
	}
	rows, err := s.db.Query(
		`SELECT id FROM account_plans WHERE account_id = ? AND status != ? ORDER BY id DESC`,
		accountID, string(model.PlanArchived),
	)
	if err != nil {
		return nil, fmt.Errorf("archive plans: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("archive plans: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) <= keepLatest {
		return nil, nil
	}
	archived := ids[keepLatest:]
	for _, id := range archived {
		if err := s.UpdatePlanStatus(id, model.PlanArchived); err != nil {
			return nil, err
		}
	}
	return archived, nil
}

func orEmptyLog(log []model.ChangeEntry) []model.ChangeEntry {
	if log == nil {
		return []model.ChangeEntry{}
	}
	return log
}
