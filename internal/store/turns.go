package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// AppendTurn records a new interaction turn. Turns are append-only and
// totally ordered by id.
func (s *Store) AppendTurn(t *model.InteractionTurn) error {
	if _, err := model.ParseCategory(string(t.Category)); err != nil {
		return err
	}
	structured, err := json.Marshal(orEmptyMap(t.Structured))
	if err != nil {
		return fmt.Errorf("marshal structured fields: %w", err)
	}
	classification := t.Classification
	if classification == "" {
		classification = model.ClassificationNew
	}
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO interactions (account_id, plan_id, category, question, answer, structured, classification, change_note, summary, follow_up, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.PlanID, string(t.Category), t.Question, t.Answer, string(structured),
		string(classification), t.ChangeNote, t.Summary, boolToInt(t.FollowUp), formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("turn id: %w", err)
	}
	t.ID = id
	t.Classification = classification
	t.CreatedAt = ts.UTC()
	return nil
}

const turnColumns = `id, account_id, plan_id, category, question, answer, structured, classification, change_note, summary, follow_up, created_at`

func scanTurn(row interface{ Scan(...any) error }) (*model.InteractionTurn, error) {
	var t model.InteractionTurn
	var planID sql.NullInt64
	var category, structured, classification, created string
	var followUp int
	err := row.Scan(&t.ID, &t.AccountID, &planID, &category, &t.Question, &t.Answer,
		&structured, &classification, &t.ChangeNote, &t.Summary, &followUp, &created)
	if err != nil {
		return nil, err
	}
	if planID.Valid {
		t.PlanID = &planID.Int64
	}
	t.Category = model.Category(category)
	t.Classification = model.Classification(classification)
	t.FollowUp = followUp != 0
	t.CreatedAt = parseTime(created)
	if structured != "" && structured != "{}" {
		if err := json.Unmarshal([]byte(structured), &t.Structured); err != nil {
			// Extraction output is best-effort; a corrupt blob must not
			// hide the raw answer.
			t.Structured = nil
		}
	}
	return &t, nil
}

// ListTurns returns all turns for an account in creation order.
func (s *Store) ListTurns(accountID int64) ([]*model.InteractionTurn, error) {
	rows, err := s.db.Query(
		`SELECT `+turnColumns+` FROM interactions WHERE account_id = ? ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []*model.InteractionTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// LatestTurn returns the most recent turn in a category, or nil when
// the category has never been answered.
func (s *Store) LatestTurn(accountID int64, category model.Category) (*model.InteractionTurn, error) {
	row := s.db.QueryRow(
		`SELECT `+turnColumns+` FROM interactions WHERE account_id = ? AND category = ? ORDER BY id DESC LIMIT 1`,
		accountID, string(category),
	)
	t, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest turn: %w", err)
	}
	return t, nil
}

// AttachStructured stores a later-derived structured extraction on an
// existing turn. The question/answer pair itself is never mutated.
func (s *Store) AttachStructured(turnID int64, fields map[string]string) error {
	blob, err := json.Marshal(orEmptyMap(fields))
	if err != nil {
		return fmt.Errorf("marshal structured fields: %w", err)
	}
	_, err = s.db.Exec(`UPDATE interactions SET structured = ? WHERE id = ?`, string(blob), turnID)
	if err != nil {
		return fmt.Errorf("attach structured fields: %w", err)
	}
	return nil
}

// AttachSummary persists the final session summary onto the turns the
// session covered.
func (s *Store) AttachSummary(turnIDs []int64, summary string) error {
	if len(turnIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("attach summary: %w", err)
	}
	defer tx.Rollback()
	for _, id := range turnIDs {
		if _, err := tx.Exec(`UPDATE interactions SET summary = ? WHERE id = ?`, summary, id); err != nil {
			return fmt.Errorf("attach summary to turn %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// LinkTurnsToPlan attaches the plan a set of turns informed.
func (s *Store) LinkTurnsToPlan(turnIDs []int64, planID int64) error {
	if len(turnIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("link turns: %w", err)
	}
	defer tx.Rollback()
	for _, id := range turnIDs {
		if _, err := tx.Exec(`UPDATE interactions SET plan_id = ? WHERE id = ?`, planID, id); err != nil {
			return fmt.Errorf("link turn %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
