package liveshop

import (
	"context"
	"fmt"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/runtime"
)

// Module adapts the service to the bus. Live shopping mostly sends; the only
// inbound traffic is broadcast chatter.
type Module struct {
	svc *Service
}

// NewModule wires the service into the message fabric.
func NewModule(svc *Service) *Module {
	return &Module{svc: svc}
}

// ID implements runtime.Module.
func (m *Module) ID() bus.ModuleID {
	return bus.ModuleLiveShop
}

// Handle matches the closed action set.
func (m *Module) Handle(_ context.Context, msg bus.Message) error {
	switch msg.Action {
	case bus.ActionStockAlert:
		payload, ok := msg.Payload.(bus.StockAlert)
		if !ok {
			return bus.BadPayload(msg)
		}
		// A host selling low-stock items live needs to know right away.
		m.svc.logger.Warn("product running low during live selling",
			"product", payload.ProductName, "stock", payload.CurrentStock)
		return nil

	default:
		return fmt.Errorf("liveshop: unknown action %q", msg.Action)
	}
}

// Health implements runtime.Module.
func (m *Module) Health() runtime.Health {
	s := m.svc
	s.mu.Lock()
	var liveSessions, activeCarts int
	for _, session := range s.sessions {
		if session.Status == SessionLive {
			liveSessions++
		}
	}
	now := s.now()
	for _, cart := range s.carts {
		if cart.Status == CartActive && now.Before(cart.ExpiresAt) {
			activeCarts++
		}
	}
	sessions := len(s.sessions)
	viewers := len(s.viewers)
	orders := len(s.orders)
	s.mu.Unlock()

	return runtime.Health{
		Status: runtime.StatusHealthy,
		Metrics: map[string]float64{
			"total_sessions": float64(sessions),
			"live_sessions":  float64(liveSessions),
			"total_viewers":  float64(viewers),
			"active_carts":   float64(activeCarts),
			"total_orders":   float64(orders),
		},
	}
}
