package domain

// AccountInfo is the statement header block. Any field may be empty when its
// label was not found in the document text.
type AccountInfo struct {
	AccountNumber   string
	HolderName      string
	AccountType     string
	IFSCCode        string
	Branch          string
	CustomerID      string
	StatementPeriod string
}

// AccountSummary is the totals block of a statement. Unparsable values are 0;
// a zero here cannot be told apart from a missing value.
type AccountSummary struct {
	AccountNumber     string
	OpeningBalance    float64
	ClosingBalance    float64
	TotalCredits      float64
	TotalDebits       float64
	TotalTransactions int
}

// Statement is everything parsed out of one statement document.
type Statement struct {
	Info         AccountInfo
	Summary      AccountSummary
	Transactions []Transaction
}
