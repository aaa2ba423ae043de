package kaia

import (
	"fmt"
	"strings"

	"github.com/haderos-erp/haderos-core/internal/shared"
)

const (
	minDescriptionLen = 10
	maxFairMarkupPct  = 100
)

var haramKeywords = []string{"alcohol", "pork", "gambling", "tobacco"}

func defaultRules() []Rule {
	return []Rule{
		{
			ID:          "sharia-001",
			Name:        "No Interest (Riba)",
			Category:    CategorySharia,
			Description: "Transactions must not involve interest (riba)",
			Validate: func(tx Transaction) Result {
				if tx.InterestAmount > 0 {
					return Result{
						Passed:     false,
						Message:    "Transaction contains interest (riba) which is prohibited",
						Severity:   SeverityCritical,
						Suggestion: "Remove interest component and use profit-sharing or markup instead",
					}
				}
				return Result{
					Passed:   true,
					Message:  "Transaction is free from interest (riba)",
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "sharia-002",
			Name:        "No Gharar (Excessive Uncertainty)",
			Category:    CategorySharia,
			Description: "Transactions must be clear and free from excessive uncertainty",
			Validate: func(tx Transaction) Result {
				if len(tx.Description) < minDescriptionLen {
					return Result{
						Passed:     false,
						Message:    "Transaction lacks clear description (gharar)",
						Severity:   SeverityWarning,
						Suggestion: "Add detailed description of goods/services and terms",
					}
				}
				return Result{
					Passed:   true,
					Message:  "Transaction is clearly described",
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "sharia-003",
			Name:        "Halal Products Only",
			Category:    CategorySharia,
			Description: "Products must be halal (permissible)",
			Validate: func(tx Transaction) Result {
				desc := strings.ToLower(tx.Description)
				for _, kw := range haramKeywords {
					if strings.Contains(desc, kw) {
						return Result{
							Passed:     false,
							Message:    "Transaction may involve prohibited (haram) products",
							Severity:   SeverityCritical,
							Suggestion: "Verify product compliance with Islamic principles",
						}
					}
				}
				return Result{
					Passed:   true,
					Message:  "Products appear to be halal (permissible)",
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "business-001",
			Name:        "Fair Pricing",
			Category:    CategoryBusiness,
			Description: "Prices must be fair and not exploitative",
			Validate: func(tx Transaction) Result {
				if tx.UnitPrice == 0 || tx.CostPrice == 0 {
					return Result{
						Passed:   true,
						Message:  "Cannot verify pricing without cost data",
						Severity: SeverityInfo,
					}
				}
				markup := (tx.UnitPrice - tx.CostPrice) / tx.CostPrice * 100
				if markup > maxFairMarkupPct {
					return Result{
						Passed:     false,
						Message:    fmt.Sprintf("Markup is %.1f%% which may be excessive", markup),
						Severity:   SeverityWarning,
						Suggestion: "Consider reducing markup to ensure fair pricing",
					}
				}
				return Result{
					Passed:   true,
					Message:  fmt.Sprintf("Markup is %.1f%% which is reasonable", markup),
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "business-002",
			Name:        "Honest Accounting",
			Category:    CategoryBusiness,
			Description: "Journal entries must be balanced",
			Validate: func(tx Transaction) Result {
				if tx.TotalDebit == 0 && tx.TotalCredit == 0 {
					return Result{
						Passed:   true,
						Message:  "Not a journal entry",
						Severity: SeverityInfo,
					}
				}
				if !shared.NearlyEqual(tx.TotalDebit, tx.TotalCredit) {
					return Result{
						Passed: false,
						Message: fmt.Sprintf("Journal entry is not balanced: Debit=%s, Credit=%s",
							shared.FormatAmount(tx.TotalDebit), shared.FormatAmount(tx.TotalCredit)),
						Severity:   SeverityCritical,
						Suggestion: "Correct the journal entry to balance debits and credits",
					}
				}
				return Result{
					Passed:   true,
					Message:  "Journal entry is properly balanced",
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "business-003",
			Name:        "Credit Limit Compliance",
			Category:    CategoryBusiness,
			Description: "Customer credit limit must not be exceeded",
			Validate: func(tx Transaction) Result {
				if tx.CreditLimit == 0 || tx.TotalAmount == 0 {
					return Result{
						Passed:   true,
						Message:  "Not a credit transaction",
						Severity: SeverityInfo,
					}
				}
				newBalance := tx.CurrentBalance + tx.TotalAmount
				if newBalance > tx.CreditLimit {
					return Result{
						Passed: false,
						Message: fmt.Sprintf("Credit limit exceeded: %s > %s",
							shared.FormatAmount(newBalance), shared.FormatAmount(tx.CreditLimit)),
						Severity:   SeverityError,
						Suggestion: "Request payment or increase credit limit before proceeding",
					}
				}
				return Result{
					Passed:   true,
					Message:  fmt.Sprintf("Credit usage: %.1f%%", newBalance/tx.CreditLimit*100),
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "legal-001",
			Name:        "Tax Compliance",
			Category:    CategoryLegal,
			Description: "Tax must be calculated correctly",
			Validate: func(tx Transaction) Result {
				if tx.Subtotal == 0 || tx.TaxRate == nil {
					return Result{
						Passed:   true,
						Message:  "Not a taxable transaction",
						Severity: SeverityInfo,
					}
				}
				expected := tx.Subtotal * (*tx.TaxRate / 100)
				if !shared.NearlyEqual(expected, tx.TaxAmount) {
					return Result{
						Passed: false,
						Message: fmt.Sprintf("Tax mismatch: Expected %s, Got %s",
							shared.FormatAmount(expected), shared.FormatAmount(tx.TaxAmount)),
						Severity:   SeverityError,
						Suggestion: "Recalculate tax amount based on current rate",
					}
				}
				return Result{
					Passed:   true,
					Message:  fmt.Sprintf("Tax calculated correctly: %s EGP", shared.FormatAmount(tx.TaxAmount)),
					Severity: SeverityInfo,
				}
			},
		},
		{
			ID:          "ethical-001",
			Name:        "Transparency",
			Category:    CategoryEthical,
			Description: "All transactions must be properly documented",
			Validate: func(tx Transaction) Result {
				if len(tx.Description) < minDescriptionLen || tx.ReferenceNumber == "" {
					return Result{
						Passed:     false,
						Message:    "Transaction lacks proper documentation",
						Severity:   SeverityWarning,
						Suggestion: "Add description and reference number for audit trail",
					}
				}
				return Result{
					Passed:   true,
					Message:  "Transaction is properly documented",
					Severity: SeverityInfo,
				}
			},
		},
	}
}
