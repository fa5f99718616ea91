package ledgerstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wch1125/proviso/internal/interpreter"
)

func TestInitSchema_ExecutesCreateTableStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS proviso.basket_ledger")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewFromDB(db)
	err = s.InitSchema(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordBasketLedger_InsertsEachEntryInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entries := []interpreter.BasketLedgerEntry{
		{ID: "e1", Amount: 500_000, Description: "year-end addition", Kind: interpreter.EntryAccumulation, Timestamp: time.Unix(0, 0)},
		{ID: "e2", Amount: 200_000, Description: "distribution", Kind: interpreter.EntryUsage, Timestamp: time.Unix(0, 0)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proviso.basket_ledger")).
		WithArgs("e1", "Facility-001", "RPBasket", "accumulation", 500_000.0, "year-end addition", entries[0].Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proviso.basket_ledger")).
		WithArgs("e2", "Facility-001", "RPBasket", "usage", 200_000.0, "distribution", entries[1].Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewFromDB(db)
	err = s.RecordBasketLedger(context.Background(), "Facility-001", "RPBasket", entries)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordBasketLedger_RollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entries := []interpreter.BasketLedgerEntry{
		{ID: "e1", Amount: 1, Description: "bad row", Kind: interpreter.EntryUsage},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proviso.basket_ledger")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	s := NewFromDB(db)
	err = s.RecordBasketLedger(context.Background(), "Facility-001", "RPBasket", entries)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCureLedger_InsertsAttempts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	attempts := []interpreter.CureAttempt{
		{ID: "c1", Date: "2026-03-31", Mechanism: "equity_cure", Amount: 1.0, Successful: true},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proviso.cure_ledger")).
		WithArgs("c1", "Facility-001", "MaxLeverage", "equity_cure", 1.0, true, "2026-03-31").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewFromDB(db)
	err = s.RecordCureLedger(context.Background(), "Facility-001", "MaxLeverage", attempts)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordComplianceSnapshot_UpsertsPerCovenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	row := interpreter.PeriodCompliance{
		Period:           "2026Q2",
		PeriodEnd:        "2026-06-30",
		Covenants:        map[string]bool{"MaxLeverage": false},
		OverallCompliant: false,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proviso.compliance_snapshot")).
		WithArgs("Facility-001", "2026Q2", "2026-06-30", "MaxLeverage", false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewFromDB(db)
	err = s.RecordComplianceSnapshot(context.Background(), "Facility-001", row)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
