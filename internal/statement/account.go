package statement

import (
	"strings"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

// ParseAccountInfo reads the statement header block. Missing labels leave
// the corresponding field empty.
func (p *Parser) ParseAccountInfo(text string) domain.AccountInfo {
	l := p.layout
	return domain.AccountInfo{
		AccountNumber:   ExtractField(l.AccountNumber, text),
		HolderName:      ExtractHolderName(l, text),
		AccountType:     ExtractField(l.AccountType, text),
		IFSCCode:        ExtractField(l.IFSCCode, text),
		Branch:          ExtractField(l.Branch, text),
		CustomerID:      ExtractField(l.CustomerID, text),
		StatementPeriod: ExtractField(l.StatementPeriod, text),
	}
}

// ParseAccountSummary reads the totals block. Values that are missing or do
// not parse are stored as 0.
func (p *Parser) ParseAccountSummary(text string) domain.AccountSummary {
	l := p.layout
	return domain.AccountSummary{
		AccountNumber:     ExtractField(l.AccountNumber, text),
		OpeningBalance:    ToAmount(ExtractField(l.OpeningBalance, text)),
		ClosingBalance:    ToAmount(ExtractField(l.ClosingBalance, text)),
		TotalCredits:      ToAmount(ExtractField(l.TotalCredits, text)),
		TotalDebits:       ToAmount(ExtractField(l.TotalDebits, text)),
		TotalTransactions: ToCount(ExtractField(l.TotalTransactions, text)),
	}
}

// ExtractHolderName finds the account holder's name: the line right above
// the ledger header, which the renderer either repeats on the next line or
// follows with a blank line. Any other shape yields "".
func ExtractHolderName(l *Layout, text string) string {
	for _, m := range l.HolderName.FindAllStringSubmatch(text, -1) {
		name, next := m[1], m[2]
		if next != "" && next != name {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}
