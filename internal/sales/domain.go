package sales

import "time"

// Customer carries contact data and the credit contract. CurrentBalance is
// bounded by CreditLimit at invoice time.
type Customer struct {
	ID             string
	Code           string
	Name           string
	Email          string
	Phone          string
	Address        string
	City           string
	Governorate    string
	TaxID          string
	CreditLimit    float64
	CurrentBalance float64
	IsActive       bool
}

// InvoiceStatus tracks an invoice through its linear lifecycle.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePosted    InvoiceStatus = "posted"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// PaymentStatus tracks how much of an invoice has been settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// SalesInvoice is immutable once it reaches a terminal state.
type SalesInvoice struct {
	ID            string
	Number        string
	CustomerID    string
	Date          time.Time
	DueDate       time.Time
	Subtotal      float64
	TaxAmount     float64
	TotalAmount   float64
	PaidAmount    float64
	Status        InvoiceStatus
	PaymentStatus PaymentStatus
	Lines         []InvoiceLine
	Notes         string
}

// InvoiceLine sells one product at one price.
type InvoiceLine struct {
	ProductID   string
	ProductName string
	Quantity    float64
	UnitPrice   float64
	TaxRate     float64
	LineTotal   float64
}

// CreateCustomerInput carries a new customer.
type CreateCustomerInput struct {
	Code        string  `validate:"required"`
	Name        string  `validate:"required"`
	Email       string  `validate:"omitempty,email"`
	Phone       string
	Address     string
	City        string
	Governorate string
	TaxID       string
	CreditLimit float64 `validate:"gte=0"`
}

// CreateInvoiceInput carries a new draft invoice.
type CreateInvoiceInput struct {
	CustomerID string             `validate:"required"`
	Date       time.Time
	DueDate    time.Time
	Lines      []InvoiceLineInput `validate:"required,min=1,dive"`
	Notes      string
}

// InvoiceLineInput is one requested invoice line.
type InvoiceLineInput struct {
	ProductID   string  `validate:"required"`
	ProductName string  `validate:"required"`
	Quantity    float64 `validate:"gt=0"`
	UnitPrice   float64 `validate:"gte=0"`
	TaxRate     float64 `validate:"gte=0,lte=100"`
}
