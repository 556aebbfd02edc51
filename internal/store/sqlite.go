package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"transfer-reconciliation-service/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteStore is a Repository backed by a SQLite database. Amounts are stored
// as their exact decimal string representation, dates as YYYY-MM-DD.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS payers (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	document  TEXT,
	confirmed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS obligations (
	id         TEXT PRIMARY KEY,
	payer_id   TEXT NOT NULL REFERENCES payers(id),
	amount_due TEXT NOT NULL,
	period     TEXT,
	due_date   TEXT,
	status     TEXT NOT NULL DEFAULT 'open'
);

CREATE TABLE IF NOT EXISTS extract_entries (
	id            TEXT PRIMARY KEY,
	sender_name   TEXT NOT NULL,
	amount        TEXT NOT NULL,
	date          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'unresolved',
	payer_id      TEXT,
	obligation_id TEXT,
	match_score   REAL
);

CREATE INDEX IF NOT EXISTS idx_entries_status ON extract_entries(status);
CREATE INDEX IF NOT EXISTS idx_obligations_payer ON obligations(payer_id);
`

// OpenSQLiteStore opens (and initializes, if necessary) a SQLite store at the
// given path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertEntry inserts an extract entry, generating an identifier when missing
func (s *SQLiteStore) InsertEntry(ctx context.Context, entry *models.ExtractEntry) error {
	if entry.ID == "" {
		entry.ID = NewRecordID(EntryIDPrefix)
	}
	if entry.Status == "" {
		entry.Status = models.StatusUnresolved
	}

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid extract entry: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extract_entries (id, sender_name, amount, date, status, payer_id, obligation_id)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))`,
		entry.ID, entry.SenderName, entry.Amount.String(), entry.Date.Format("2006-01-02"),
		entry.Status.String(), entry.PayerID, entry.ObligationID)
	return err
}

// InsertPayer inserts a payer, generating an identifier when missing
func (s *SQLiteStore) InsertPayer(ctx context.Context, payer *models.Payer) error {
	if payer.ID == "" {
		payer.ID = NewRecordID(PayerIDPrefix)
	}

	if err := payer.Validate(); err != nil {
		return fmt.Errorf("invalid payer: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payers (id, name, document, confirmed) VALUES (?, ?, NULLIF(?, ''), ?)`,
		payer.ID, payer.Name, payer.Document, boolToInt(payer.Confirmed))
	return err
}

// InsertObligation inserts an obligation, generating an identifier when missing
func (s *SQLiteStore) InsertObligation(ctx context.Context, obligation *models.Obligation) error {
	if obligation.ID == "" {
		obligation.ID = NewRecordID(ObligationIDPrefix)
	}
	if obligation.Status == "" {
		obligation.Status = models.SettlementOpen
	}

	if err := obligation.Validate(); err != nil {
		return fmt.Errorf("invalid obligation: %w", err)
	}

	dueDate := ""
	if !obligation.DueDate.IsZero() {
		dueDate = obligation.DueDate.Format("2006-01-02")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO obligations (id, payer_id, amount_due, period, due_date, status)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?)`,
		obligation.ID, obligation.PayerID, obligation.AmountDue.String(),
		obligation.Period, dueDate, string(obligation.Status))
	return err
}

// ListEntries returns every extract entry ordered by identifier
func (s *SQLiteStore) ListEntries(ctx context.Context) ([]*models.ExtractEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, sender_name, amount, date, status, COALESCE(payer_id, ''), COALESCE(obligation_id, '')
		 FROM extract_entries ORDER BY rowid`)
}

// ListUnresolvedEntries returns entries still awaiting attribution
func (s *SQLiteStore) ListUnresolvedEntries(ctx context.Context) ([]*models.ExtractEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, sender_name, amount, date, status, COALESCE(payer_id, ''), COALESCE(obligation_id, '')
		 FROM extract_entries WHERE status != 'resolved' ORDER BY rowid`)
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string) ([]*models.ExtractEntry, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query extract entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.ExtractEntry
	for rows.Next() {
		var entry models.ExtractEntry
		var amount, date, status string

		if err := rows.Scan(&entry.ID, &entry.SenderName, &amount, &date, &status,
			&entry.PayerID, &entry.ObligationID); err != nil {
			return nil, fmt.Errorf("failed to scan extract entry: %w", err)
		}

		entry.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for entry %s: %w", entry.ID, err)
		}

		entry.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("corrupt date for entry %s: %w", entry.ID, err)
		}

		entry.Status, err = models.ParseResolutionStatus(status)
		if err != nil {
			return nil, fmt.Errorf("corrupt status for entry %s: %w", entry.ID, err)
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// MarkResolved links an entry to a payer and optionally an obligation
func (s *SQLiteStore) MarkResolved(ctx context.Context, entryID, payerID, obligationID string, score float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE extract_entries
		 SET status = 'resolved', payer_id = ?, obligation_id = NULLIF(?, ''), match_score = ?
		 WHERE id = ?`,
		payerID, obligationID, score, entryID)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s resolved: %w", entryID, err)
	}

	return s.requireOneRow(result, entryID)
}

// MarkAmbiguous flags an entry that needs operator review
func (s *SQLiteStore) MarkAmbiguous(ctx context.Context, entryID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE extract_entries SET status = 'ambiguous' WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s ambiguous: %w", entryID, err)
	}

	return s.requireOneRow(result, entryID)
}

// ListPayers returns every registered payer ordered by identifier
func (s *SQLiteStore) ListPayers(ctx context.Context) ([]*models.Payer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(document, ''), confirmed FROM payers ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payers: %w", err)
	}
	defer rows.Close()

	var payers []*models.Payer
	for rows.Next() {
		var payer models.Payer
		var confirmed int

		if err := rows.Scan(&payer.ID, &payer.Name, &payer.Document, &confirmed); err != nil {
			return nil, fmt.Errorf("failed to scan payer: %w", err)
		}

		payer.Confirmed = confirmed != 0
		payers = append(payers, &payer)
	}

	return payers, rows.Err()
}

// ListObligations returns obligations, optionally filtered by payer
func (s *SQLiteStore) ListObligations(ctx context.Context, payerID string) ([]*models.Obligation, error) {
	query := `SELECT id, payer_id, amount_due, COALESCE(period, ''), COALESCE(due_date, ''), status
		 FROM obligations`
	var args []interface{}
	if payerID != "" {
		query += ` WHERE payer_id = ?`
		args = append(args, payerID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*models.Obligation
	for rows.Next() {
		var obligation models.Obligation
		var amount, dueDate, status string

		if err := rows.Scan(&obligation.ID, &obligation.PayerID, &amount,
			&obligation.Period, &dueDate, &status); err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}

		obligation.AmountDue, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for obligation %s: %w", obligation.ID, err)
		}

		if dueDate != "" {
			obligation.DueDate, err = time.Parse("2006-01-02", dueDate)
			if err != nil {
				return nil, fmt.Errorf("corrupt due date for obligation %s: %w", obligation.ID, err)
			}
		}

		obligation.Status = models.SettlementStatus(status)
		obligations = append(obligations, &obligation)
	}

	return obligations, rows.Err()
}

func (s *SQLiteStore) requireOneRow(result sql.Result, entryID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("extract entry not found: %s", entryID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
