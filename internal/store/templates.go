package store

import (
	"encoding/json"
	"fmt"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// SaveTemplate inserts a question template. Question text is unique;
// an existing template with the same text is left untouched.
func (s *Store) SaveTemplate(t *model.QuestionTemplate) error {
	if _, err := model.ParseCategory(string(t.Category)); err != nil {
		return err
	}
	if t.Question == "" {
		return model.Validationf("question text is required")
	}
	followUps, err := json.Marshal(orEmptySlice(t.FollowUps))
	if err != nil {
		return fmt.Errorf("marshal follow-ups: %w", err)
	}
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO question_templates (category, question, description, is_core, follow_ups, rank, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(question) DO NOTHING`,
		string(t.Category), t.Question, t.Description, boolToInt(t.IsCore),
		string(followUps), t.Rank, boolToInt(t.Active), formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		t.ID = id
		t.CreatedAt = ts.UTC()
	}
	return nil
}

// ListTemplates returns all templates ordered by rank, then insertion
// order. Inactive templates are included; callers filter.
func (s *Store) ListTemplates() ([]*model.QuestionTemplate, error) {
	rows, err := s.db.Query(
		`SELECT id, category, question, description, is_core, follow_ups, rank, active, created_at
		 FROM question_templates ORDER BY rank, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*model.QuestionTemplate
	for rows.Next() {
		var t model.QuestionTemplate
		var category, followUps, created string
		var isCore, active int
		if err := rows.Scan(&t.ID, &category, &t.Question, &t.Description, &isCore,
			&followUps, &t.Rank, &active, &created); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Category = model.Category(category)
		t.IsCore = isCore != 0
		t.Active = active != 0
		t.CreatedAt = parseTime(created)
		if err := json.Unmarshal([]byte(followUps), &t.FollowUps); err != nil {
			t.FollowUps = nil
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// SetTemplateActive flips a template's active flag.
func (s *Store) SetTemplateActive(id int64, active bool) error {
	res, err := s.db.Exec(`UPDATE question_templates SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("template %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
