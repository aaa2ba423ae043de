package sales

import (
	"context"
	"fmt"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/runtime"
)

// Module adapts the sales service to the bus.
type Module struct {
	svc *Service
}

// NewModule wires the service into the message fabric.
func NewModule(svc *Service) *Module {
	return &Module{svc: svc}
}

// ID implements runtime.Module.
func (m *Module) ID() bus.ModuleID {
	return bus.ModuleSales
}

// Handle matches the closed action set.
func (m *Module) Handle(ctx context.Context, msg bus.Message) error {
	switch msg.Action {
	case bus.ActionCreateInvoice:
		payload, ok := msg.Payload.(bus.CreateInvoice)
		if !ok {
			return bus.BadPayload(msg)
		}
		lines := make([]InvoiceLineInput, 0, len(payload.Lines))
		for _, l := range payload.Lines {
			lines = append(lines, InvoiceLineInput{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				TaxRate:     l.TaxRate,
			})
		}
		invoice, err := m.svc.CreateInvoice(ctx, CreateInvoiceInput{
			CustomerID: payload.CustomerID,
			Lines:      lines,
			Notes:      payload.Notes,
		})
		if err != nil {
			return err
		}
		m.svc.bus.Send(msg.Reply(bus.ActionInvoiceCreatedReply, bus.InvoiceCreated{
			InvoiceID:   invoice.ID,
			Number:      invoice.Number,
			TotalAmount: invoice.TotalAmount,
		}))
		return nil

	case bus.ActionPostInvoice:
		payload, ok := msg.Payload.(bus.PostInvoice)
		if !ok {
			return bus.BadPayload(msg)
		}
		return m.svc.PostInvoice(ctx, payload.InvoiceID)

	case bus.ActionGetCustomer:
		payload, ok := msg.Payload.(bus.GetCustomer)
		if !ok {
			return bus.BadPayload(msg)
		}
		snapshot := bus.CustomerSnapshot{CustomerID: payload.CustomerID}
		if c, err := m.svc.Customer(payload.CustomerID); err == nil {
			snapshot = bus.CustomerSnapshot{
				Found:          true,
				CustomerID:     c.ID,
				Code:           c.Code,
				Name:           c.Name,
				CreditLimit:    c.CreditLimit,
				CurrentBalance: c.CurrentBalance,
			}
		}
		m.svc.bus.Send(msg.Reply(bus.ActionCustomerReply, snapshot))
		return nil

	case bus.ActionPaymentReceived:
		payload, ok := msg.Payload.(bus.PaymentReceived)
		if !ok {
			return bus.BadPayload(msg)
		}
		return m.svc.ApplyPayment(payload.InvoiceID, payload.Amount)

	case bus.ActionLiveOrderCreated:
		payload, ok := msg.Payload.(bus.LiveOrderCreated)
		if !ok {
			return bus.BadPayload(msg)
		}
		m.svc.RecordLiveOrder(payload)
		return nil

	case bus.ActionStockAlert:
		// Advisory broadcast; sales keeps selling until stock actually runs out.
		return nil

	default:
		return fmt.Errorf("sales: unknown action %q", msg.Action)
	}
}

// Health implements runtime.Module.
func (m *Module) Health() runtime.Health {
	s := m.svc
	s.mu.Lock()
	customers := len(s.customers)
	invoices := len(s.invoices)
	liveOrders := s.liveOrders
	var posted int
	var totalSales, outstanding float64
	for _, invoice := range s.invoices {
		if invoice.Status == InvoicePosted || invoice.Status == InvoicePaid {
			posted++
			totalSales += invoice.TotalAmount
		}
		if invoice.Status == InvoicePosted && invoice.PaymentStatus != PaymentPaid {
			outstanding += invoice.TotalAmount - invoice.PaidAmount
		}
	}
	s.mu.Unlock()

	return runtime.Health{
		Status: runtime.StatusHealthy,
		Metrics: map[string]float64{
			"total_customers":     float64(customers),
			"total_invoices":      float64(invoices),
			"posted_invoices":     float64(posted),
			"total_sales":         totalSales,
			"outstanding_balance": outstanding,
			"live_orders":         float64(liveOrders),
		},
	}
}
