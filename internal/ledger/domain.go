package ledger

import "time"

// AccountType classifies an account for balance sign conventions.
type AccountType string

const (
	AccountAsset     AccountType = "Asset"
	AccountLiability AccountType = "Liability"
	AccountEquity    AccountType = "Equity"
	AccountIncome    AccountType = "Income"
	AccountExpense   AccountType = "Expense"
)

// Well-known leaf accounts seeded at startup.
const (
	AccountIDCash         = "acc-1110"
	AccountIDBank         = "acc-1120"
	AccountIDReceivable   = "acc-1130"
	AccountIDInventory    = "acc-1140"
	AccountIDTaxPayable   = "acc-2120"
	AccountIDSalesRevenue = "acc-4100"
)

// Account is one node of the chart of accounts. Group accounts structure the
// tree; leaf accounts hold real balances.
type Account struct {
	ID       string
	Code     string
	Name     string
	Type     AccountType
	ParentID string
	IsGroup  bool
	Balance  float64
	Currency string
}

// EntryStatus tracks a journal entry through its linear lifecycle.
type EntryStatus string

const (
	EntryDraft     EntryStatus = "draft"
	EntryPosted    EntryStatus = "posted"
	EntryCancelled EntryStatus = "cancelled"
)

// JournalEntry is a balanced set of debit/credit lines. Once posted it is
// immutable.
type JournalEntry struct {
	ID             string
	Number         string
	Date           time.Time
	Description    string
	TotalDebit     float64
	TotalCredit    float64
	Status         EntryStatus
	SourceModule   string
	SourceDocument string
	Lines          []EntryLine
}

// EntryLine debits or credits one account.
type EntryLine struct {
	AccountID   string
	Debit       float64
	Credit      float64
	Description string
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
)

// Payment records money received from a customer. Posting a payment also
// posts its matching journal entry.
type Payment struct {
	ID         string
	Number     string
	CustomerID string
	InvoiceID  string
	Date       time.Time
	Amount     float64
	Method     PaymentMethod
	Reference  string
	Status     EntryStatus
}

// EntryInput describes a journal entry to create.
type EntryInput struct {
	Date           time.Time
	Description    string
	SourceModule   string
	SourceDocument string
	Lines          []EntryLine
}

// PaymentInput describes a payment to record.
type PaymentInput struct {
	CustomerID string        `validate:"required"`
	InvoiceID  string
	Date       time.Time
	Amount     float64       `validate:"gt=0"`
	Method     PaymentMethod `validate:"required,oneof=cash bank_transfer card"`
	Reference  string
}
