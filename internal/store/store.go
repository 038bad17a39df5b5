// Package store implements SQLite persistence for accounts and the
// records they own: evidence, interaction turns, question templates,
// and plans. Uniqueness and cascade invariants live in the schema.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS accounts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name TEXT NOT NULL UNIQUE,
	industry     TEXT NOT NULL DEFAULT '',
	company_size TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	country      TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS external_info (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id   INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	info_type    TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	collected_at TEXT NOT NULL,
	UNIQUE(account_id, info_type)
);

CREATE TABLE IF NOT EXISTS account_plans (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	sections   TEXT NOT NULL DEFAULT '{}',
	status     TEXT NOT NULL DEFAULT 'draft',
	change_log TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id     INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	plan_id        INTEGER REFERENCES account_plans(id) ON DELETE SET NULL,
	category       TEXT NOT NULL,
	question       TEXT NOT NULL,
	answer         TEXT NOT NULL,
	structured     TEXT NOT NULL DEFAULT '{}',
	classification TEXT NOT NULL DEFAULT 'new',
	change_note    TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	follow_up      INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_account_category
	ON interactions(account_id, category, id);

CREATE TABLE IF NOT EXISTS question_templates (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	category    TEXT NOT NULL,
	question    TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	is_core     INTEGER NOT NULL DEFAULT 1,
	follow_ups  TEXT NOT NULL DEFAULT '[]',
	rank        INTEGER NOT NULL DEFAULT 0,
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes access; a single connection avoids
	// SQLITE_BUSY under concurrent account pipelines.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// now is a package-level var to allow test injection.
var now = time.Now

// CreateAccount inserts a new account. Company names are unique;
// a duplicate name is reported as a validation error.
func (s *Store) CreateAccount(a *model.Account) error {
	if a.CompanyName == "" {
		return model.Validationf("company name is required")
	}
	if a.Country == "" {
		return model.Validationf("country is required")
	}
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO accounts (company_name, industry, company_size, website, country, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CompanyName, a.Industry, a.CompanySize, a.Website, a.Country, a.Description,
		formatTime(ts), formatTime(ts),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Validationf("account %q already exists", a.CompanyName)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	a.ID = id
	a.CreatedAt = ts.UTC()
	a.UpdatedAt = ts.UTC()
	return nil
}

const accountColumns = `id, company_name, industry, company_size, website, country, description, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var created, updated string
	err := row.Scan(&a.ID, &a.CompanyName, &a.Industry, &a.CompanySize, &a.Website,
		&a.Country, &a.Description, &created, &updated)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return &a, nil
}

// GetAccount returns the account with the given id.
func (s *Store) GetAccount(id int64) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// GetAccountByName returns the account with the given company name.
func (s *Store) GetAccountByName(name string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE company_name = ?`, name)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by creation.
func (s *Store) ListAccounts() ([]*model.Account, error) {
	rows, err := s.db.Query(`SELECT ` + accountColumns + ` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccount updates the mutable account fields.
func (s *Store) UpdateAccount(a *model.Account) error {
	ts := now()
	_, err := s.db.Exec(
		`UPDATE accounts SET industry = ?, company_size = ?, website = ?, country = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		a.Industry, a.CompanySize, a.Website, a.Country, a.Description, formatTime(ts), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	a.UpdatedAt = ts.UTC()
	return nil
}

// DeleteAccount removes an account; evidence, turns, and plans cascade.
func (s *Store) DeleteAccount(id int64) error {
	res, err := s.db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, model.ErrNotFound)
	}
	return nil
}
