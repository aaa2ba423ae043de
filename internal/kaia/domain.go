// Package kaia implements the compliance engine gating financially material
// transactions on Sharia, business, legal and ethical criteria. It is a shared
// library invoked synchronously by transactional modules, not a module itself.
package kaia

import "time"

// Category groups rules by the concern they police.
type Category string

const (
	CategorySharia   Category = "sharia"
	CategoryBusiness Category = "business"
	CategoryLegal    Category = "legal"
	CategoryEthical  Category = "ethical"
)

// Severity grades a rule outcome.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Transaction is the payload shape rules evaluate. Fields a given transaction
// does not carry stay at their zero value; rules that need to distinguish
// "absent" from zero use pointers.
type Transaction struct {
	ID              string
	Description     string
	ReferenceNumber string

	InterestAmount float64

	UnitPrice float64
	CostPrice float64

	TotalDebit  float64
	TotalCredit float64

	CreditLimit    float64
	CurrentBalance float64
	TotalAmount    float64

	Subtotal  float64
	TaxRate   *float64
	TaxAmount float64
}

// Rule is a pure predicate over a transaction payload.
type Rule struct {
	ID          string
	Name        string
	Category    Category
	Description string
	Validate    func(tx Transaction) Result
}

// Result is one rule's verdict on one transaction.
type Result struct {
	Passed     bool
	RuleID     string
	RuleName   string
	Category   Category
	Message    string
	Severity   Severity
	Suggestion string
}

// Validation aggregates every rule outcome for one transaction. It is
// retained for audit.
type Validation struct {
	TransactionID   string
	TransactionType string
	Passed          bool
	Results         []Result
	Timestamp       time.Time
}

// FailedResults returns the subset of results that did not pass.
func (v Validation) FailedResults() []Result {
	var failed []Result
	for _, r := range v.Results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Statistics summarises the retained validation history.
type Statistics struct {
	Total          int
	Passed         int
	Failed         int
	PassRate       float64
	CategoryTotals map[Category]int
}
