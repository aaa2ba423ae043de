package bus

import "time"

// CheckStock asks inventory whether qty units are available for sale.
type CheckStock struct {
	ProductID string
	Quantity  float64
}

// StockCheckResult answers a CheckStock request with the real inventory state.
type StockCheckResult struct {
	ProductID    string
	Available    bool
	CurrentStock float64
}

// ReserveStock places a hold on stock under a reference id until released or consumed.
type ReserveStock struct {
	ProductID   string
	Quantity    float64
	ReferenceID string
}

// DeductStock records an outbound movement against a product. Line
// disambiguates multiple lines of one source document so redelivery of a
// single line never swallows its siblings.
type DeductStock struct {
	ProductID     string
	Quantity      float64
	ReferenceType string
	ReferenceID   string
	Line          int
	Notes         string
}

// GetProduct asks inventory for one product snapshot.
type GetProduct struct {
	ProductID string
}

// GetAllProducts asks inventory for the full active catalog.
type GetAllProducts struct{}

// ProductList is the reply to GetAllProducts.
type ProductList struct {
	Products []ProductSnapshot
}

// ProductSnapshot is the reply to GetProduct. A missing product sets Found=false.
type ProductSnapshot struct {
	Found        bool
	ProductID    string
	Code         string
	Name         string
	SellingPrice float64
	TaxRate      float64
	Stock        float64
}

// StockAlert is broadcast when a product reaches its reorder level.
type StockAlert struct {
	ProductID    string
	ProductName  string
	CurrentStock float64
	ReorderLevel float64
}

// PrepareProducts tells inventory to pre-stage products for a live session.
type PrepareProducts struct {
	SessionID  string
	ProductIDs []string
}

// CreateInvoiceEntry asks the ledger to post the journal entry for a sales invoice.
type CreateInvoiceEntry struct {
	InvoiceID     string
	InvoiceNumber string
	InvoiceDate   time.Time
	Subtotal      float64
	TaxAmount     float64
	TotalAmount   float64
}

// CreatePayment asks the ledger to record a customer payment.
type CreatePayment struct {
	CustomerID string
	InvoiceID  string
	Date       time.Time
	Amount     float64
	Method     string
	Reference  string
}

// GetAccountBalance asks the ledger for one account balance.
type GetAccountBalance struct {
	AccountID string
}

// AccountBalance is the reply to GetAccountBalance.
type AccountBalance struct {
	AccountID string
	Balance   float64
}

// InvoiceLineSpec is one requested line of a CreateInvoice message.
type InvoiceLineSpec struct {
	ProductID   string
	ProductName string
	Quantity    float64
	UnitPrice   float64
	TaxRate     float64
}

// CreateInvoice asks sales to store a draft invoice for a customer.
type CreateInvoice struct {
	CustomerID string
	Lines      []InvoiceLineSpec
	Notes      string
}

// InvoiceCreated is the reply to CreateInvoice.
type InvoiceCreated struct {
	InvoiceID   string
	Number      string
	TotalAmount float64
}

// PostInvoice asks sales to commit a draft invoice.
type PostInvoice struct {
	InvoiceID string
}

// GetCustomer asks sales for one customer snapshot.
type GetCustomer struct {
	CustomerID string
}

// CustomerSnapshot is the reply to GetCustomer. A missing customer sets Found=false.
type CustomerSnapshot struct {
	Found          bool
	CustomerID     string
	Code           string
	Name           string
	CreditLimit    float64
	CurrentBalance float64
}

// PaymentReceived notifies sales that a payment was posted against an invoice.
type PaymentReceived struct {
	InvoiceID string
	Amount    float64
}

// LiveOrderCreated notifies sales of a checked-out live-shopping order.
type LiveOrderCreated struct {
	OrderID      string
	OrderNumber  string
	SessionID    string
	CustomerName string
	Total        float64
}

// LogLearningEvent feeds the learning module's append-only event log.
type LogLearningEvent struct {
	Module    string
	EventType string
	Category  string
	Severity  string
	Data      map[string]any
	Tags      []string
}

// GetInsights asks learning for its aggregated patterns.
type GetInsights struct {
	TopN int
}

// LearningPattern is one derived frequency-based pattern.
type LearningPattern struct {
	Pattern        string
	Frequency      int
	LastOccurrence time.Time
	Recommendation string
}

// InsightsReport is the reply to GetInsights.
type InsightsReport struct {
	Patterns []LearningPattern
}

// GetRecentEvents asks learning for its most recent events.
type GetRecentEvents struct {
	Limit int
}

// RecentEvent is one audit record in a RecentEvents reply.
type RecentEvent struct {
	ID        string
	Timestamp time.Time
	Module    string
	EventType string
	Category  string
	Severity  string
}

// RecentEvents is the reply to GetRecentEvents.
type RecentEvents struct {
	Events []RecentEvent
}
