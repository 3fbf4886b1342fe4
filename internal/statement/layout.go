package statement

import (
	"regexp"
)

// LedgerHeader is the column header that opens the transaction table.
const LedgerHeader = "Date\nTransaction Description"

// Layout is one statement text layout: the labels and patterns the parser
// relies on. A statement that renders differently needs a new Layout, not a
// patched one.
type Layout struct {
	Version string

	AccountNumber   *regexp.Regexp
	AccountType     *regexp.Regexp
	IFSCCode        *regexp.Regexp
	Branch          *regexp.Regexp
	CustomerID      *regexp.Regexp
	StatementPeriod *regexp.Regexp

	// HolderName captures the candidate name line and the line after it.
	HolderName *regexp.Regexp

	OpeningBalance    *regexp.Regexp
	ClosingBalance    *regexp.Regexp
	TotalCredits      *regexp.Regexp
	TotalDebits       *regexp.Regexp
	TotalTransactions *regexp.Regexp

	// LedgerMarker, when present in the text, is where the row scan starts.
	LedgerMarker string
	// LedgerRow captures date, description, reference, type, amount, balance.
	LedgerRow *regexp.Regexp
	// DateLayout is the time layout of the ledger date column.
	DateLayout string
}

// LayoutV1 is the single-account statement layout with a labelled header,
// a totals block with one value per line, and a six-column ledger.
var LayoutV1 = &Layout{
	Version: "v1",

	AccountNumber:   regexp.MustCompile(`Account Number:\s*(\d+)`),
	AccountType:     regexp.MustCompile(`(?s)Account Type:\s*(.*?)\s+IFSC Code:`),
	IFSCCode:        regexp.MustCompile(`IFSC Code:\s*(\w+)`),
	Branch:          regexp.MustCompile(`(?s)Branch:\s*(.*?)\s+Statement Period:`),
	CustomerID:      regexp.MustCompile(`Customer ID:\s*(\w+)`),
	StatementPeriod: regexp.MustCompile(`(?s)Statement Period:\s*(.*?)\s+Customer ID:`),

	HolderName: regexp.MustCompile(`\n([A-Za-z \t.]+)\n([A-Za-z \t.]*)\n\n` + regexp.QuoteMeta(LedgerHeader)),

	OpeningBalance:    regexp.MustCompile(`Opening Balance\s*\n\s*[A-Za-z₹■]?\s*(-?[\d,]+\.\d+)`),
	ClosingBalance:    regexp.MustCompile(`Closing Balance\s*\n\s*[A-Za-z₹■]?\s*(-?[\d,]+\.\d+)`),
	TotalCredits:      regexp.MustCompile(`Total Credits.*?\n\s*[A-Za-z₹■]?\s*(-?[\d,]+\.\d+)`),
	TotalDebits:       regexp.MustCompile(`Total Debits.*?\n\s*[A-Za-z₹■]?\s*(-?[\d,]+\.\d+)`),
	TotalTransactions: regexp.MustCompile(`Total Transactions\s*\n\s*(\d+)`),

	LedgerMarker: LedgerHeader,
	LedgerRow: regexp.MustCompile(`(?s)` +
		`(\d{2}-\d{2}-\d{4})\s+` + // date
		`(.+?)\s+` + // description, may wrap lines
		`([A-Z0-9]+)\s+` + // reference
		`(DR|CR)\s+` + // type
		`(-?[\d,]+\.\d+)\s+` + // amount
		`(-?[\d,]+\.\d+)`), // running balance
	DateLayout: "02-01-2006",
}
