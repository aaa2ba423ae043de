package sales

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/kaia"
	"github.com/haderos-erp/haderos-core/internal/shared"
)

// Messenger is the slice of the bus the service needs: fire-and-forget sends
// plus correlated request/reply for stock checks.
type Messenger interface {
	Send(msg bus.Message)
	Request(ctx context.Context, msg bus.Message) (bus.Message, error)
}

const stockCheckTimeout = 5 * time.Second

// Service owns customers and invoices. It orchestrates inventory and ledger
// through messages and gates postings through the compliance engine.
type Service struct {
	logger   *slog.Logger
	bus      Messenger
	engine   *kaia.Engine
	validate *validator.Validate
	now      func() time.Time

	invoiceSeq *shared.Sequence

	mu         sync.Mutex
	customers  map[string]*Customer
	invoices   map[string]*SalesInvoice
	liveOrders int
}

// NewService builds the sales service.
func NewService(logger *slog.Logger, messenger Messenger, engine *kaia.Engine) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:     logger.With("module", string(bus.ModuleSales)),
		bus:        messenger,
		engine:     engine,
		validate:   validator.New(),
		now:        time.Now,
		invoiceSeq: shared.NewSequence("INV", 4),
		customers:  make(map[string]*Customer),
		invoices:   make(map[string]*SalesInvoice),
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.invoiceSeq.WithNow(now)
	}
	return s
}

// CreateCustomer adds a customer.
func (s *Service) CreateCustomer(input CreateCustomerInput) (Customer, error) {
	if err := s.validate.Struct(input); err != nil {
		return Customer{}, fmt.Errorf("sales: create customer: %w", err)
	}
	c := &Customer{
		ID:          "cust-" + uuid.NewString(),
		Code:        input.Code,
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		City:        input.City,
		Governorate: input.Governorate,
		TaxID:       input.TaxID,
		CreditLimit: input.CreditLimit,
		IsActive:    true,
	}
	s.mu.Lock()
	s.customers[c.ID] = c
	s.mu.Unlock()
	s.logger.Info("created customer", "code", c.Code, "name", c.Name)
	return *c, nil
}

// Customer returns one customer snapshot.
func (s *Service) Customer(id string) (Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("sales: customer %s: %w", id, shared.ErrNotFound)
	}
	return *c, nil
}

// AllCustomers returns snapshots of every active customer, ordered by code.
func (s *Service) AllCustomers() []Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CreateInvoice stores a draft invoice after the credit check and a real
// stock check for every line. Totals are computed here, never trusted from
// the caller.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (SalesInvoice, error) {
	if err := s.validate.Struct(input); err != nil {
		return SalesInvoice{}, fmt.Errorf("sales: create invoice: %w", err)
	}

	var subtotal, taxAmount float64
	lines := make([]InvoiceLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lineTotal := shared.Round2(l.Quantity * l.UnitPrice)
		subtotal += lineTotal
		taxAmount += shared.Round2(lineTotal * l.TaxRate / 100)
		lines = append(lines, InvoiceLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			LineTotal:   lineTotal,
		})
	}
	subtotal = shared.Round2(subtotal)
	taxAmount = shared.Round2(taxAmount)
	totalAmount := shared.Round2(subtotal + taxAmount)

	s.mu.Lock()
	customer, ok := s.customers[input.CustomerID]
	if !ok {
		s.mu.Unlock()
		return SalesInvoice{}, fmt.Errorf("sales: customer %s: %w", input.CustomerID, shared.ErrNotFound)
	}
	limit, balance, name := customer.CreditLimit, customer.CurrentBalance, customer.Name
	s.mu.Unlock()

	if balance+totalAmount > limit {
		return SalesInvoice{}, fmt.Errorf("sales: customer %s limit %s balance %s new %s: %w",
			name, shared.FormatAmount(limit), shared.FormatAmount(balance),
			shared.FormatAmount(totalAmount), shared.ErrCreditLimitExceeded)
	}

	for _, line := range lines {
		if err := s.checkStock(ctx, line); err != nil {
			return SalesInvoice{}, err
		}
	}

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	invoice := &SalesInvoice{
		ID:            "inv-" + uuid.NewString(),
		Number:        s.invoiceSeq.Next(),
		CustomerID:    input.CustomerID,
		Date:          date,
		DueDate:       input.DueDate,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		TotalAmount:   totalAmount,
		Status:        InvoiceDraft,
		PaymentStatus: PaymentUnpaid,
		Lines:         lines,
		Notes:         input.Notes,
	}

	s.mu.Lock()
	s.invoices[invoice.ID] = invoice
	s.mu.Unlock()

	s.logger.Info("created invoice", "number", invoice.Number, "customer", name, "total", totalAmount)
	return snapshotInvoice(invoice), nil
}

// checkStock asks inventory for a real answer and waits for the reply.
func (s *Service) checkStock(ctx context.Context, line InvoiceLine) error {
	ctx, cancel := context.WithTimeout(ctx, stockCheckTimeout)
	defer cancel()
	reply, err := s.bus.Request(ctx, bus.New(bus.ModuleSales, bus.ModuleInventory, bus.ActionCheckStock, bus.CheckStock{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
	}))
	if err != nil {
		return fmt.Errorf("sales: stock check for %s: %w", line.ProductID, err)
	}
	result, ok := reply.Payload.(bus.StockCheckResult)
	if !ok {
		return bus.BadPayload(reply)
	}
	if !result.Available {
		return fmt.Errorf("sales: %s available %.0f required %.0f: %w",
			line.ProductName, result.CurrentStock, line.Quantity, shared.ErrInsufficientStock)
	}
	return nil
}

// PostInvoice is the commit step: compliance gate, stock deduction messages,
// customer balance update and the ledger entry message. The cross-module
// side effects are fire-and-forget; a downstream failure is surfaced through
// the learning module, not rolled back.
func (s *Service) PostInvoice(ctx context.Context, invoiceID string) error {
	s.mu.Lock()
	invoice, ok := s.invoices[invoiceID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sales: invoice %s: %w", invoiceID, shared.ErrNotFound)
	}
	if invoice.Status == InvoicePosted || invoice.Status == InvoicePaid {
		number := invoice.Number
		s.mu.Unlock()
		return fmt.Errorf("sales: invoice %s: %w", number, shared.ErrAlreadyPosted)
	}
	customer, ok := s.customers[invoice.CustomerID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("sales: customer %s: %w", invoice.CustomerID, shared.ErrNotFound)
	}

	validation := s.engine.ValidateTransaction(s.invoiceTransaction(invoice, customer), "sales_invoice")
	if !validation.Passed {
		summary := s.engine.Summary(validation)
		s.mu.Unlock()
		return fmt.Errorf("sales: %s: %w", summary, shared.ErrComplianceRejected)
	}

	for i, line := range invoice.Lines {
		s.bus.Send(bus.New(bus.ModuleSales, bus.ModuleInventory, bus.ActionDeductStock, bus.DeductStock{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			ReferenceType: "sale",
			ReferenceID:   invoice.ID,
			Line:          i,
			Notes:         "Invoice " + invoice.Number,
		}))
	}

	customer.CurrentBalance += invoice.TotalAmount

	s.bus.Send(bus.New(bus.ModuleSales, bus.ModuleLedger, bus.ActionCreateInvoiceEntry, bus.CreateInvoiceEntry{
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		InvoiceDate:   invoice.Date,
		Subtotal:      invoice.Subtotal,
		TaxAmount:     invoice.TaxAmount,
		TotalAmount:   invoice.TotalAmount,
	}))

	invoice.Status = InvoicePosted
	number := invoice.Number
	s.mu.Unlock()

	s.logger.Info("posted invoice", "number", number)
	return nil
}

// invoiceTransaction maps an invoice onto the compliance payload shape.
func (s *Service) invoiceTransaction(invoice *SalesInvoice, customer *Customer) kaia.Transaction {
	tx := kaia.Transaction{
		ID:              invoice.ID,
		Description:     fmt.Sprintf("Sales Invoice %s for %s", invoice.Number, customer.Name),
		ReferenceNumber: invoice.Number,
		CreditLimit:     customer.CreditLimit,
		CurrentBalance:  customer.CurrentBalance,
		TotalAmount:     invoice.TotalAmount,
		Subtotal:        invoice.Subtotal,
		TaxAmount:       invoice.TaxAmount,
	}
	// A single uniform line rate makes the tax rule checkable.
	if rate, uniform := uniformTaxRate(invoice.Lines); uniform {
		tx.TaxRate = &rate
	}
	return tx
}

func uniformTaxRate(lines []InvoiceLine) (float64, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	rate := lines[0].TaxRate
	for _, l := range lines[1:] {
		if l.TaxRate != rate {
			return 0, false
		}
	}
	return rate, true
}

// ApplyPayment settles part or all of an invoice and reduces the customer's
// outstanding balance.
func (s *Service) ApplyPayment(invoiceID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("sales: invoice %s: %w", invoiceID, shared.ErrNotFound)
	}
	invoice.PaidAmount = shared.Round2(invoice.PaidAmount + amount)
	if invoice.PaidAmount >= invoice.TotalAmount-shared.BalanceEpsilon {
		invoice.PaymentStatus = PaymentPaid
		invoice.Status = InvoicePaid
	} else {
		invoice.PaymentStatus = PaymentPartial
	}
	if customer, ok := s.customers[invoice.CustomerID]; ok {
		customer.CurrentBalance = shared.Round2(customer.CurrentBalance - amount)
	}
	s.logger.Info("payment received", "invoice", invoice.Number, "amount", amount,
		"payment_status", string(invoice.PaymentStatus))
	return nil
}

// RecordLiveOrder counts an order handed over from the live-shopping channel.
func (s *Service) RecordLiveOrder(order bus.LiveOrderCreated) {
	s.mu.Lock()
	s.liveOrders++
	s.mu.Unlock()
	s.logger.Info("live order received", "order", order.OrderNumber, "total", order.Total)
}

// Invoice returns one invoice snapshot.
func (s *Service) Invoice(id string) (SalesInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return SalesInvoice{}, fmt.Errorf("sales: invoice %s: %w", id, shared.ErrNotFound)
	}
	return snapshotInvoice(invoice), nil
}

// AllInvoices returns snapshots of every invoice, ordered by number.
func (s *Service) AllInvoices() []SalesInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SalesInvoice, 0, len(s.invoices))
	for _, invoice := range s.invoices {
		out = append(out, snapshotInvoice(invoice))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// CustomerInvoices returns snapshots of one customer's invoices.
func (s *Service) CustomerInvoices(customerID string) []SalesInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SalesInvoice
	for _, invoice := range s.invoices {
		if invoice.CustomerID == customerID {
			out = append(out, snapshotInvoice(invoice))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// TotalSales sums posted and paid invoice totals.
func (s *Service) TotalSales() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, invoice := range s.invoices {
		if invoice.Status == InvoicePosted || invoice.Status == InvoicePaid {
			total += invoice.TotalAmount
		}
	}
	return shared.Round2(total)
}

// OutstandingBalance sums the unpaid remainder of posted invoices.
func (s *Service) OutstandingBalance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, invoice := range s.invoices {
		if invoice.Status == InvoicePosted && invoice.PaymentStatus != PaymentPaid {
			total += invoice.TotalAmount - invoice.PaidAmount
		}
	}
	return shared.Round2(total)
}

func snapshotInvoice(invoice *SalesInvoice) SalesInvoice {
	snapshot := *invoice
	snapshot.Lines = append([]InvoiceLine(nil), invoice.Lines...)
	return snapshot
}
