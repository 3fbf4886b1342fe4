package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFileKey = "statements/april.pdf"

var (
	accountInfoSQL  = regexp.QuoteMeta("INSERT INTO account_info")
	summarySQL      = regexp.QuoteMeta("INSERT INTO account_summary")
	transactionSQL  = regexp.QuoteMeta("INSERT INTO transactions")
	processedSQL    = regexp.QuoteMeta("INSERT INTO processed_files")
	isProcessedSQL  = regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM processed_files")
	errWriteFailure = errors.New("connection reset")
)

// amount matches a NUMERIC argument by value, whatever its text form.
type amount string

func (a amount) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	return err == nil && got.Equal(decimal.RequireFromString(string(a)))
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func sampleStatement() *domain.Statement {
	return &domain.Statement{
		Info: domain.AccountInfo{
			AccountNumber: "12345",
			HolderName:    "RAVI KUMAR",
		},
		Summary: domain.AccountSummary{
			AccountNumber:     "12345",
			OpeningBalance:    1000,
			ClosingBalance:    2000,
			TotalTransactions: 3,
		},
		Transactions: []domain.Transaction{
			{
				Date:        civil.Date{Year: 2024, Month: 4, Day: 1},
				Description: "ZOMATO ORDER",
				Reference:   "REF001",
				Type:        domain.Debit,
				DebitAmount: 250,
				Category:    "FOOD_DELIVERY",
			},
			{
				Date:         civil.Date{Year: 2024, Month: 4, Day: 2},
				Description:  "SALARY CREDIT",
				Reference:    "SAL001",
				Type:         domain.Credit,
				CreditAmount: 1234.567,
				Category:     "SALARY",
			},
		},
	}
}

// unitStage names each write of the persistence unit in execution order.
type unitStage int

const (
	stageAccountInfo unitStage = iota
	stageSummary
	stagePrepare
	stageTransaction
	stageLedger
	stageCommit
	stageDone
)

// expectUnit registers the persistence unit's statements up to failAt, which
// returns errWriteFailure. stageDone registers the complete successful unit.
func expectUnit(mock sqlmock.Sqlmock, failAt unitStage) {
	mock.ExpectBegin()

	info := mock.ExpectExec(accountInfoSQL).
		WithArgs("12345", "RAVI KUMAR", "", "", "", "", "")
	if failAt == stageAccountInfo {
		info.WillReturnError(errWriteFailure)
		mock.ExpectRollback()
		return
	}
	info.WillReturnResult(sqlmock.NewResult(0, 1))

	summary := mock.ExpectExec(summarySQL).
		WithArgs("12345", amount("1000"), amount("2000"), amount("0"), amount("0"), 3, testFileKey)
	if failAt == stageSummary {
		summary.WillReturnError(errWriteFailure)
		mock.ExpectRollback()
		return
	}
	summary.WillReturnResult(sqlmock.NewResult(1, 1))

	prep := mock.ExpectPrepare(transactionSQL)
	if failAt == stagePrepare {
		prep.WillReturnError(errWriteFailure)
		mock.ExpectRollback()
		return
	}

	prep.ExpectExec().
		WithArgs("12345", sqlmock.AnyArg(), "ZOMATO ORDER", "REF001", "DR", amount("250"), amount("0"), "FOOD_DELIVERY", testFileKey).
		WillReturnResult(sqlmock.NewResult(1, 1))
	second := prep.ExpectExec().
		WithArgs("12345", sqlmock.AnyArg(), "SALARY CREDIT", "SAL001", "CR", amount("0"), amount("1234.57"), "SALARY", testFileKey)
	if failAt == stageTransaction {
		second.WillReturnError(errWriteFailure)
		mock.ExpectRollback()
		return
	}
	second.WillReturnResult(sqlmock.NewResult(2, 1))

	ledger := mock.ExpectExec(processedSQL).WithArgs(testFileKey)
	if failAt == stageLedger {
		ledger.WillReturnError(errWriteFailure)
		mock.ExpectRollback()
		return
	}
	ledger.WillReturnResult(sqlmock.NewResult(0, 1))

	commit := mock.ExpectCommit()
	if failAt == stageCommit {
		commit.WillReturnError(errWriteFailure)
	}
}

func TestCommitStatement_WritesUnitInOrder(t *testing.T) {
	s, mock := newMockStore(t)
	expectUnit(mock, stageDone)

	result, err := s.CommitStatement(context.Background(), testFileKey, sampleStatement())

	require.NoError(t, err)
	assert.True(t, result.AccountCreated)
	assert.Equal(t, 2, result.TransactionsWritten)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitStatement_RollsBackOnFailedWrite(t *testing.T) {
	tests := []struct {
		name  string
		stage unitStage
	}{
		{"account_info insert", stageAccountInfo},
		{"account_summary insert", stageSummary},
		{"prepare transactions", stagePrepare},
		{"transaction insert", stageTransaction},
		{"ledger insert", stageLedger},
		{"commit", stageCommit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			expectUnit(mock, tt.stage)

			result, err := s.CommitStatement(context.Background(), testFileKey, sampleStatement())

			require.Error(t, err)
			assert.ErrorIs(t, err, errWriteFailure)
			assert.NotErrorIs(t, err, ErrAlreadyProcessed)
			assert.Equal(t, CommitResult{}, result)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCommitStatement_LedgerConflictRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(accountInfoSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(summarySQL).WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare(transactionSQL)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(processedSQL).WithArgs(testFileKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.CommitStatement(context.Background(), testFileKey, sampleStatement())

	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitStatement_ExistingAccountKept(t *testing.T) {
	s, mock := newMockStore(t)

	st := sampleStatement()
	st.Transactions = nil

	mock.ExpectBegin()
	mock.ExpectExec(accountInfoSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(summarySQL).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(processedSQL).WithArgs(testFileKey).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := s.CommitStatement(context.Background(), testFileKey, st)

	require.NoError(t, err)
	assert.False(t, result.AccountCreated)
	assert.Equal(t, 0, result.TransactionsWritten)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitStatement_CancelledContext(t *testing.T) {
	s, mock := newMockStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CommitStatement(ctx, testFileKey, sampleStatement())

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitStatement_NilStatement(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CommitStatement(context.Background(), testFileKey, nil)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsProcessed(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		err     error
		want    bool
		wantErr bool
	}{
		{name: "present", rows: sqlmock.NewRows([]string{"exists"}).AddRow(true), want: true},
		{name: "absent", rows: sqlmock.NewRows([]string{"exists"}).AddRow(false), want: false},
		{name: "query error", err: errWriteFailure, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			q := mock.ExpectQuery(isProcessedSQL).WithArgs(testFileKey)
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(tt.rows)
			}

			got, err := s.IsProcessed(context.Background(), testFileKey)

			if tt.wantErr {
				assert.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkProcessed(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"new key", 1, true},
		{"existing key is a no-op", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec(processedSQL).WithArgs(testFileKey).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := s.MarkProcessed(context.Background(), testFileKey)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{250, "250.00"},
		{1234.567, "1234.57"},
		{0.1 + 0.2, "0.30"},
		{-75.5, "-75.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, money(tt.in).StringFixed(2))
	}
}
