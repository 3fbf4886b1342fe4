package statement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

// Ledger row capture groups.
const (
	groupDate = iota + 1
	groupDescription
	groupReference
	groupType
	groupAmount
	groupBalance
)

// ParseTransactions scans the ledger section of text and returns its rows in
// document order. Rows that cannot be built (bad date, anything unexpected)
// are logged and dropped; they never stop the scan.
func (p *Parser) ParseTransactions(ctx context.Context, text string) []domain.Transaction {
	log := logger.FromContext(ctx)

	ledger := text
	if p.layout.LedgerMarker != "" {
		if idx := strings.Index(text, p.layout.LedgerMarker); idx >= 0 {
			ledger = text[idx+len(p.layout.LedgerMarker):]
		}
	}

	matches := p.layout.LedgerRow.FindAllStringSubmatch(ledger, -1)
	txs := make([]domain.Transaction, 0, len(matches))
	for i, m := range matches {
		tx, err := p.buildTransaction(m)
		if err != nil {
			log.Warn().
				Err(err).
				Int("row", i+1).
				Str("raw", m[0]).
				Msg("Skipping transaction row")
			continue
		}
		if tx.Amount() == 0 {
			// Kept as printed, but neither side carries a value.
			log.Warn().
				Int("row", i+1).
				Str("reference", tx.Reference).
				Str("type", string(tx.Type)).
				Msg("Transaction row has a zero amount")
		}
		txs = append(txs, tx)
	}

	log.Debug().
		Int("matched", len(matches)).
		Int("parsed", len(txs)).
		Msg("Parsed ledger rows")

	return txs
}

func (p *Parser) buildTransaction(m []string) (tx domain.Transaction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("buildTransaction: unexpected failure: %v", r)
		}
	}()

	date, err := time.Parse(p.layout.DateLayout, m[groupDate])
	if err != nil {
		return tx, fmt.Errorf("buildTransaction: invalid date %q: %w", m[groupDate], err)
	}

	desc := strings.TrimSpace(m[groupDescription])
	amount := ToAmount(m[groupAmount])

	tx = domain.Transaction{
		Date:        civil.DateOf(date),
		Description: desc,
		Reference:   m[groupReference],
		Type:        domain.TransactionType(m[groupType]),
		Category:    p.classifier.Classify(desc),
	}

	switch tx.Type {
	case domain.Debit:
		tx.DebitAmount = amount
	case domain.Credit:
		tx.CreditAmount = amount
	default:
		return domain.Transaction{}, fmt.Errorf("buildTransaction: unknown type %q", m[groupType])
	}

	return tx, nil
}
