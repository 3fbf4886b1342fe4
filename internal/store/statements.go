package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/shopspring/decimal"
)

// ErrAlreadyProcessed is returned by CommitStatement when another run
// recorded the same file first. Nothing from the losing unit is kept.
var ErrAlreadyProcessed = errors.New("document already processed")

const (
	insertAccountInfoQuery = `INSERT INTO account_info
		(account_number, holder_name, account_type, ifsc_code, branch, customer_id, statement_period)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_number) DO NOTHING`

	insertSummaryQuery = `INSERT INTO account_summary
		(account_number, opening_balance, closing_balance, total_credits, total_debits, total_transactions, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertTransactionQuery = `INSERT INTO transactions
		(account_number, transaction_date, description, reference, transaction_type, debit_amount, credit_amount, category, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

// CommitResult describes what one persistence unit wrote.
type CommitResult struct {
	AccountCreated      bool
	TransactionsWritten int
}

// CommitStatement writes the account header (if absent), one summary row,
// every transaction and finally the ledger entry for fileKey, all in one
// database transaction. Any failure, a cancelled ctx, or a ledger conflict
// rolls the whole unit back.
func (s *Store) CommitStatement(ctx context.Context, fileKey string, st *domain.Statement) (CommitResult, error) {
	log := logger.FromContext(ctx)

	if st == nil {
		return CommitResult{}, fmt.Errorf("CommitStatement: nil statement for %q", fileKey)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CommitResult{}, fmt.Errorf("CommitStatement: begin transaction: %w", err)
	}
	// A no-op once Commit has succeeded.
	defer tx.Rollback()

	var result CommitResult

	info := st.Info
	res, err := tx.ExecContext(ctx, insertAccountInfoQuery,
		info.AccountNumber, info.HolderName, info.AccountType, info.IFSCCode,
		info.Branch, info.CustomerID, info.StatementPeriod,
	)
	if err != nil {
		return CommitResult{}, fmt.Errorf("CommitStatement: inserting account_info: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		result.AccountCreated = true
	}

	sum := st.Summary
	if _, err := tx.ExecContext(ctx, insertSummaryQuery,
		info.AccountNumber, money(sum.OpeningBalance), money(sum.ClosingBalance),
		money(sum.TotalCredits), money(sum.TotalDebits), sum.TotalTransactions, fileKey,
	); err != nil {
		return CommitResult{}, fmt.Errorf("CommitStatement: inserting account_summary: %w", err)
	}

	if len(st.Transactions) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertTransactionQuery)
		if err != nil {
			return CommitResult{}, fmt.Errorf("CommitStatement: preparing transaction insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range st.Transactions {
			if _, err := stmt.ExecContext(ctx,
				info.AccountNumber, t.Date.In(time.UTC), t.Description, t.Reference, string(t.Type),
				money(t.DebitAmount), money(t.CreditAmount), t.Category, fileKey,
			); err != nil {
				return CommitResult{}, fmt.Errorf("CommitStatement: inserting transaction %d: %w", i, err)
			}
			result.TransactionsWritten++
		}
	}

	inserted, err := markProcessed(ctx, tx, fileKey)
	if err != nil {
		return CommitResult{}, fmt.Errorf("CommitStatement: %w", err)
	}
	if !inserted {
		return CommitResult{}, fmt.Errorf("CommitStatement: %q: %w", fileKey, ErrAlreadyProcessed)
	}

	if err := tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("CommitStatement: commit: %w", err)
	}

	log.Debug().
		Str("account_number", info.AccountNumber).
		Bool("account_created", result.AccountCreated).
		Int("transactions", result.TransactionsWritten).
		Msg("Persistence unit committed")

	return result, nil
}

// money rounds an amount to the two decimal places the NUMERIC columns hold.
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
