// Package ledgerstore persists an Interpreter's append-only ledgers —
// basket draws/accumulations, cure attempts, and per-period compliance
// snapshots — to Postgres, so an audit trail survives past the process
// that produced it.
package ledgerstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/wch1125/proviso/internal/interpreter"
)

// Store is the database connection and write operations for ledger
// persistence. It is safe for concurrent use; ledger and cure rows are
// plain inserts, and compliance snapshots are upserted per period.
type Store struct {
	db *sql.DB
}

// New opens a Postgres connection and verifies it with a ping.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledgerstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledgerstore: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB constructs a Store from an existing *sql.DB. Used in tests
// with a sqlmock-backed connection.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema creates the ledger tables if they do not already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS proviso.basket_ledger (
	id          uuid PRIMARY KEY,
	agreement   text NOT NULL,
	basket      text NOT NULL,
	kind        text NOT NULL,
	amount      numeric NOT NULL,
	description text NOT NULL,
	occurred_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS proviso.cure_ledger (
	id          uuid PRIMARY KEY,
	agreement   text NOT NULL,
	covenant    text NOT NULL,
	mechanism   text NOT NULL,
	amount      numeric NOT NULL,
	successful  boolean NOT NULL,
	cured_at    text NOT NULL
);

CREATE TABLE IF NOT EXISTS proviso.compliance_snapshot (
	agreement          text NOT NULL,
	period             text NOT NULL,
	period_end         text NOT NULL,
	covenant           text NOT NULL,
	compliant          boolean NOT NULL,
	overall_compliant  boolean NOT NULL,
	PRIMARY KEY (agreement, period, covenant)
);`)
	if err != nil {
		return fmt.Errorf("ledgerstore: init schema: %w", err)
	}
	return nil
}

// RecordBasketLedger writes every entry of a basket's ledger history
// for the named agreement. Entries already present (by id) are left
// untouched via ON CONFLICT DO NOTHING, so this can be called
// repeatedly against a growing ledger.
func (s *Store) RecordBasketLedger(ctx context.Context, agreement, basket string, entries []interpreter.BasketLedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledgerstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		kind := "usage"
		if e.Kind == interpreter.EntryAccumulation {
			kind = "accumulation"
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO proviso.basket_ledger (id, agreement, basket, kind, amount, description, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`,
			e.ID, agreement, basket, kind, e.Amount, e.Description, e.Timestamp)
		if err != nil {
			return fmt.Errorf("ledgerstore: insert basket ledger entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// RecordCureLedger writes every entry of a covenant's cure history for
// the named agreement.
func (s *Store) RecordCureLedger(ctx context.Context, agreement, covenant string, attempts []interpreter.CureAttempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledgerstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range attempts {
		_, err := tx.ExecContext(ctx, `
INSERT INTO proviso.cure_ledger (id, agreement, covenant, mechanism, amount, successful, cured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`,
			a.ID, agreement, covenant, a.Mechanism, a.Amount, a.Successful, a.Date)
		if err != nil {
			return fmt.Errorf("ledgerstore: insert cure attempt %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// RecordComplianceSnapshot writes one period's per-covenant compliance
// results for the named agreement, replacing any prior row for the
// same (agreement, period, covenant).
func (s *Store) RecordComplianceSnapshot(ctx context.Context, agreement string, row interpreter.PeriodCompliance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledgerstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for covenant, compliant := range row.Covenants {
		_, err := tx.ExecContext(ctx, `
INSERT INTO proviso.compliance_snapshot (agreement, period, period_end, covenant, compliant, overall_compliant)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (agreement, period, covenant) DO UPDATE SET
	compliant = EXCLUDED.compliant,
	overall_compliant = EXCLUDED.overall_compliant`,
			agreement, row.Period, row.PeriodEnd, covenant, compliant, row.OverallCompliant)
		if err != nil {
			return fmt.Errorf("ledgerstore: insert compliance snapshot %s/%s: %w", row.Period, covenant, err)
		}
	}
	return tx.Commit()
}
