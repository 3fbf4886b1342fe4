// Package statement turns the text of a bank statement into account,
// summary and transaction records.
package statement

import (
	"context"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

// Classifier assigns a category code to a transaction description.
type Classifier interface {
	Classify(description string) string
}

// Parser applies one Layout to statement text.
type Parser struct {
	layout     *Layout
	classifier Classifier
}

// NewParser creates a parser for layout. A nil layout means LayoutV1.
func NewParser(layout *Layout, classifier Classifier) *Parser {
	if layout == nil {
		layout = LayoutV1
	}
	return &Parser{
		layout:     layout,
		classifier: classifier,
	}
}

// Layout returns the layout the parser applies.
func (p *Parser) Layout() *Layout {
	return p.layout
}

// Parse extracts the full statement. It never fails: missing pieces come back
// as empty strings, zeros or fewer rows.
func (p *Parser) Parse(ctx context.Context, text string) *domain.Statement {
	log := logger.FromContext(ctx)

	st := &domain.Statement{
		Info:         p.ParseAccountInfo(text),
		Summary:      p.ParseAccountSummary(text),
		Transactions: p.ParseTransactions(ctx, text),
	}

	if st.Info.AccountNumber == "" {
		log.Warn().Str("layout", p.layout.Version).Msg("Account number not found in statement text")
	}

	return st
}
