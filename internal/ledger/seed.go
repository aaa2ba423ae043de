package ledger

// seedAccounts installs the default chart of accounts. The structure follows
// the standard retail tree: Assets 1xxx, Liabilities 2xxx, Equity 3xxx,
// Income 4xxx, Expenses 5xxx.
func (s *Service) seedAccounts() {
	defaults := []Account{
		{ID: "acc-1000", Code: "1000", Name: "Assets", Type: AccountAsset, IsGroup: true},
		{ID: "acc-1100", Code: "1100", Name: "Current Assets", Type: AccountAsset, ParentID: "acc-1000", IsGroup: true},
		{ID: AccountIDCash, Code: "1110", Name: "Cash", Type: AccountAsset, ParentID: "acc-1100"},
		{ID: AccountIDBank, Code: "1120", Name: "Bank Account", Type: AccountAsset, ParentID: "acc-1100"},
		{ID: AccountIDReceivable, Code: "1130", Name: "Accounts Receivable", Type: AccountAsset, ParentID: "acc-1100"},
		{ID: AccountIDInventory, Code: "1140", Name: "Inventory", Type: AccountAsset, ParentID: "acc-1100"},

		{ID: "acc-2000", Code: "2000", Name: "Liabilities", Type: AccountLiability, IsGroup: true},
		{ID: "acc-2100", Code: "2100", Name: "Current Liabilities", Type: AccountLiability, ParentID: "acc-2000", IsGroup: true},
		{ID: "acc-2110", Code: "2110", Name: "Accounts Payable", Type: AccountLiability, ParentID: "acc-2100"},
		{ID: AccountIDTaxPayable, Code: "2120", Name: "Tax Payable", Type: AccountLiability, ParentID: "acc-2100"},

		{ID: "acc-3000", Code: "3000", Name: "Equity", Type: AccountEquity, IsGroup: true},
		{ID: "acc-3100", Code: "3100", Name: "Capital", Type: AccountEquity, ParentID: "acc-3000"},
		{ID: "acc-3200", Code: "3200", Name: "Retained Earnings", Type: AccountEquity, ParentID: "acc-3000"},

		{ID: "acc-4000", Code: "4000", Name: "Income", Type: AccountIncome, IsGroup: true},
		{ID: AccountIDSalesRevenue, Code: "4100", Name: "Sales Revenue", Type: AccountIncome, ParentID: "acc-4000"},
		{ID: "acc-4200", Code: "4200", Name: "Service Revenue", Type: AccountIncome, ParentID: "acc-4000"},

		{ID: "acc-5000", Code: "5000", Name: "Expenses", Type: AccountExpense, IsGroup: true},
		{ID: "acc-5100", Code: "5100", Name: "Cost of Goods Sold", Type: AccountExpense, ParentID: "acc-5000"},
		{ID: "acc-5200", Code: "5200", Name: "Operating Expenses", Type: AccountExpense, ParentID: "acc-5000"},
	}
	for i := range defaults {
		account := defaults[i]
		account.Currency = "EGP"
		s.accounts[account.ID] = &account
	}
	s.logger.Info("seeded chart of accounts", "count", len(defaults))
}
