package store

import (
	"database/sql"
	"fmt"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// UpsertEvidence replaces any existing record for (account, type) and
// advances the collection timestamp. The (account_id, info_type)
// uniqueness constraint makes the replace atomic.
func (s *Store) UpsertEvidence(rec *model.EvidenceRecord) error {
	if _, err := model.ParseEvidenceType(string(rec.Type)); err != nil {
		return err
	}
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO external_info (account_id, info_type, content, source_url, collected_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(account_id, info_type) DO UPDATE SET
		   content = excluded.content,
		   source_url = excluded.source_url,
		   collected_at = excluded.collected_at`,
		rec.AccountID, string(rec.Type), rec.Content, rec.SourceURL, formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("upsert evidence: %w", err)
	}
	rec.CollectedAt = ts.UTC()
	// LastInsertId is not meaningful after an upsert conflict; re-read the id.
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		rec.ID = id
	}
	row := s.db.QueryRow(
		`SELECT id FROM external_info WHERE account_id = ? AND info_type = ?`,
		rec.AccountID, string(rec.Type),
	)
	if err := row.Scan(&rec.ID); err != nil {
		return fmt.Errorf("upsert evidence: %w", err)
	}
	return nil
}

const evidenceColumns = `id, account_id, info_type, content, source_url, collected_at`

func scanEvidence(row interface{ Scan(...any) error }) (*model.EvidenceRecord, error) {
	var rec model.EvidenceRecord
	var typ, collected string
	if err := row.Scan(&rec.ID, &rec.AccountID, &typ, &rec.Content, &rec.SourceURL, &collected); err != nil {
		return nil, err
	}
	rec.Type = model.EvidenceType(typ)
	rec.CollectedAt = parseTime(collected)
	return &rec, nil
}

// GetEvidence returns the current record for (account, type), or nil
// when absent. Absence is not an error.
func (s *Store) GetEvidence(accountID int64, typ model.EvidenceType) (*model.EvidenceRecord, error) {
	if _, err := model.ParseEvidenceType(string(typ)); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(
		`SELECT `+evidenceColumns+` FROM external_info WHERE account_id = ? AND info_type = ?`,
		accountID, string(typ),
	)
	rec, err := scanEvidence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get evidence: %w", err)
	}
	return rec, nil
}

// ListEvidence returns all current records for an account, one per type.
func (s *Store) ListEvidence(accountID int64) ([]*model.EvidenceRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+evidenceColumns+` FROM external_info WHERE account_id = ?`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var records []*model.EvidenceRecord
	for rows.Next() {
		rec, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
