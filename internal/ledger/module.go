package ledger

import (
	"context"
	"fmt"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/runtime"
)

// Module adapts the ledger service to the bus.
type Module struct {
	svc *Service
	pub Publisher
}

// NewModule wires the service into the message fabric.
func NewModule(svc *Service, pub Publisher) *Module {
	return &Module{svc: svc, pub: pub}
}

// ID implements runtime.Module.
func (m *Module) ID() bus.ModuleID {
	return bus.ModuleLedger
}

// Handle matches the closed action set.
func (m *Module) Handle(_ context.Context, msg bus.Message) error {
	switch msg.Action {
	case bus.ActionCreateInvoiceEntry:
		payload, ok := msg.Payload.(bus.CreateInvoiceEntry)
		if !ok {
			return bus.BadPayload(msg)
		}
		return m.svc.PostInvoiceEntry(payload)

	case bus.ActionCreatePayment:
		payload, ok := msg.Payload.(bus.CreatePayment)
		if !ok {
			return bus.BadPayload(msg)
		}
		_, err := m.svc.CreatePayment(PaymentInput{
			CustomerID: payload.CustomerID,
			InvoiceID:  payload.InvoiceID,
			Date:       payload.Date,
			Amount:     payload.Amount,
			Method:     PaymentMethod(payload.Method),
			Reference:  payload.Reference,
		})
		return err

	case bus.ActionGetAccountBalance:
		payload, ok := msg.Payload.(bus.GetAccountBalance)
		if !ok {
			return bus.BadPayload(msg)
		}
		balance, err := m.svc.AccountBalance(payload.AccountID)
		if err != nil {
			return err
		}
		m.pub.Send(msg.Reply(bus.ActionAccountBalanceReply, bus.AccountBalance{
			AccountID: payload.AccountID,
			Balance:   balance,
		}))
		return nil

	case bus.ActionStockAlert:
		// Informational broadcast; the ledger has nothing to book for it.
		return nil

	default:
		return fmt.Errorf("ledger: unknown action %q", msg.Action)
	}
}

// Health implements runtime.Module.
func (m *Module) Health() runtime.Health {
	s := m.svc
	s.mu.Lock()
	accounts := len(s.accounts)
	entries := len(s.entries)
	payments := len(s.payments)
	var posted int
	for _, e := range s.entries {
		if e.Status == EntryPosted {
			posted++
		}
	}
	s.mu.Unlock()

	return runtime.Health{
		Status: runtime.StatusHealthy,
		Metrics: map[string]float64{
			"total_accounts":        float64(accounts),
			"total_journal_entries": float64(entries),
			"posted_entries":        float64(posted),
			"total_payments":        float64(payments),
		},
	}
}
