package domain

import (
	"cloud.google.com/go/civil"
)

// TransactionType is the ledger column that says which way money moved.
type TransactionType string

const (
	// Debit marks money leaving the account.
	Debit TransactionType = "DR"
	// Credit marks money entering the account.
	Credit TransactionType = "CR"
)

// Transaction is one ledger row parsed from a statement.
// This is a domain struct, not a table row; the store maps it
// into the transactions table together with the statement's account number.
type Transaction struct {
	Date        civil.Date      // parsed from the dd-mm-yyyy date column
	Description string          // free text, may span wrapped lines
	Reference   string          // alphanumeric reference column
	Type        TransactionType // DR or CR

	// Exactly one of DebitAmount/CreditAmount is populated, chosen by Type.
	DebitAmount  float64
	CreditAmount float64

	Category string // category code from the classifier, OTHER when nothing matched
}

// Amount returns whichever side of the row is populated.
func (t Transaction) Amount() float64 {
	if t.Type == Debit {
		return t.DebitAmount
	}
	return t.CreditAmount
}
