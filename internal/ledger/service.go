package ledger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/shared"
)

// Publisher is the slice of the bus the service needs for notifications.
type Publisher interface {
	Send(msg bus.Message)
}

// Service owns the chart of accounts, the journal and payments. Accounts are
// seeded once at startup and mutated only by posting journal entries.
type Service struct {
	logger   *slog.Logger
	pub      Publisher
	validate *validator.Validate
	now      func() time.Time

	entrySeq   *shared.Sequence
	paymentSeq *shared.Sequence

	mu       sync.Mutex
	accounts map[string]*Account
	entries  map[string]*JournalEntry
	payments map[string]*Payment
}

// NewService builds the ledger service with the default chart of accounts.
func NewService(logger *slog.Logger, pub Publisher) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		logger:     logger.With("module", string(bus.ModuleLedger)),
		pub:        pub,
		validate:   validator.New(),
		now:        time.Now,
		entrySeq:   shared.NewSequence("JE", 4),
		paymentSeq: shared.NewSequence("PAY", 4),
		accounts:   make(map[string]*Account),
		entries:    make(map[string]*JournalEntry),
		payments:   make(map[string]*Payment),
	}
	s.seedAccounts()
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.entrySeq.WithNow(now)
		s.paymentSeq.WithNow(now)
	}
	return s
}

// CreateJournalEntry validates balance and stores a draft entry. Debits and
// credits must match within shared.BalanceEpsilon.
func (s *Service) CreateJournalEntry(input EntryInput) (JournalEntry, error) {
	if len(input.Lines) == 0 {
		return JournalEntry{}, fmt.Errorf("ledger: entry requires lines")
	}
	var totalDebit, totalCredit float64
	for _, line := range input.Lines {
		totalDebit += line.Debit
		totalCredit += line.Credit
	}
	if !shared.NearlyEqual(totalDebit, totalCredit) {
		return JournalEntry{}, fmt.Errorf("ledger: debit=%s credit=%s: %w",
			shared.FormatAmount(totalDebit), shared.FormatAmount(totalCredit), shared.ErrUnbalancedEntry)
	}

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	entry := &JournalEntry{
		ID:             "je-" + uuid.NewString(),
		Number:         s.entrySeq.Next(),
		Date:           date,
		Description:    input.Description,
		TotalDebit:     totalDebit,
		TotalCredit:    totalCredit,
		Status:         EntryDraft,
		SourceModule:   input.SourceModule,
		SourceDocument: input.SourceDocument,
		Lines:          append([]EntryLine(nil), input.Lines...),
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	s.logger.Info("created journal entry", "number", entry.Number, "debit", totalDebit)
	return *entry, nil
}

// PostJournalEntry walks every line and applies the sign conventions:
// Asset/Expense accounts increase on debit, Liability/Equity/Income on
// credit. Posting an already-posted entry is rejected.
func (s *Service) PostJournalEntry(entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return fmt.Errorf("ledger: entry %s: %w", entryID, shared.ErrNotFound)
	}
	if entry.Status == EntryPosted {
		return fmt.Errorf("ledger: entry %s: %w", entry.Number, shared.ErrAlreadyPosted)
	}
	for _, line := range entry.Lines {
		if _, ok := s.accounts[line.AccountID]; !ok {
			return fmt.Errorf("ledger: account %s: %w", line.AccountID, shared.ErrNotFound)
		}
	}

	for _, line := range entry.Lines {
		account := s.accounts[line.AccountID]
		switch account.Type {
		case AccountAsset, AccountExpense:
			account.Balance += line.Debit - line.Credit
		default:
			account.Balance += line.Credit - line.Debit
		}
	}
	entry.Status = EntryPosted

	s.logger.Info("posted journal entry", "number", entry.Number)
	return nil
}

// CreatePayment records a payment and, when posted, creates and posts the
// matching cash-debit / receivable-credit journal entry as one step, then
// notifies sales.
func (s *Service) CreatePayment(input PaymentInput) (Payment, error) {
	if err := s.validate.Struct(input); err != nil {
		return Payment{}, fmt.Errorf("ledger: create payment: %w", err)
	}

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	payment := &Payment{
		ID:         "pay-" + uuid.NewString(),
		Number:     s.paymentSeq.Next(),
		CustomerID: input.CustomerID,
		InvoiceID:  input.InvoiceID,
		Date:       date,
		Amount:     input.Amount,
		Method:     input.Method,
		Reference:  input.Reference,
		Status:     EntryPosted,
	}

	entry, err := s.CreateJournalEntry(EntryInput{
		Date:           date,
		Description:    fmt.Sprintf("Payment %s from customer %s", payment.Number, payment.CustomerID),
		SourceModule:   string(bus.ModuleLedger),
		SourceDocument: payment.ID,
		Lines: []EntryLine{
			{AccountID: AccountIDCash, Debit: payment.Amount, Description: "Payment received"},
			{AccountID: AccountIDReceivable, Credit: payment.Amount, Description: "Payment from customer"},
		},
	})
	if err != nil {
		return Payment{}, err
	}
	if err := s.PostJournalEntry(entry.ID); err != nil {
		return Payment{}, err
	}

	s.mu.Lock()
	s.payments[payment.ID] = payment
	s.mu.Unlock()

	s.logger.Info("created payment", "number", payment.Number, "amount", payment.Amount)

	if s.pub != nil && payment.InvoiceID != "" {
		s.pub.Send(bus.New(bus.ModuleLedger, bus.ModuleSales, bus.ActionPaymentReceived, bus.PaymentReceived{
			InvoiceID: payment.InvoiceID,
			Amount:    payment.Amount,
		}))
	}
	return *payment, nil
}

// PostInvoiceEntry creates and posts the three-line journal entry for a
// posted sales invoice: receivable debit, revenue and tax credits.
func (s *Service) PostInvoiceEntry(input bus.CreateInvoiceEntry) error {
	entry, err := s.CreateJournalEntry(EntryInput{
		Date:           input.InvoiceDate,
		Description:    fmt.Sprintf("Sales Invoice %s", input.InvoiceNumber),
		SourceModule:   string(bus.ModuleSales),
		SourceDocument: input.InvoiceID,
		Lines: []EntryLine{
			{AccountID: AccountIDReceivable, Debit: input.TotalAmount, Description: "Invoice " + input.InvoiceNumber},
			{AccountID: AccountIDSalesRevenue, Credit: input.Subtotal, Description: "Sales revenue"},
			{AccountID: AccountIDTaxPayable, Credit: input.TaxAmount, Description: "Sales tax"},
		},
	})
	if err != nil {
		return err
	}
	return s.PostJournalEntry(entry.ID)
}

// AccountBalance returns one account's balance.
func (s *Service) AccountBalance(accountID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return 0, fmt.Errorf("ledger: account %s: %w", accountID, shared.ErrNotFound)
	}
	return account.Balance, nil
}

// AllAccounts returns a snapshot of the chart of accounts ordered by code.
func (s *Service) AllAccounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Entry returns one journal entry snapshot.
func (s *Service) Entry(id string) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return JournalEntry{}, fmt.Errorf("ledger: entry %s: %w", id, shared.ErrNotFound)
	}
	snapshot := *entry
	snapshot.Lines = append([]EntryLine(nil), entry.Lines...)
	return snapshot, nil
}
