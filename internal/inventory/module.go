package inventory

import (
	"context"
	"fmt"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/runtime"
)

// Module adapts the service to the bus. All cross-module traffic lands here.
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
	return bus.ModuleInventory
}

// Handle matches the closed action set. Unknown actions are an error, not a
// silently ignored warning.
func (m *Module) Handle(_ context.Context, msg bus.Message) error {
	switch msg.Action {
	case bus.ActionCheckStock:
		payload, ok := msg.Payload.(bus.CheckStock)
		if !ok {
			return bus.BadPayload(msg)
		}
		result := bus.StockCheckResult{ProductID: payload.ProductID}
		if available, err := m.svc.Available(payload.ProductID); err == nil {
			result.CurrentStock = available
			result.Available = available >= payload.Quantity
		}
		m.pub.Send(msg.Reply(bus.ActionStockCheckReply, result))
		return nil

	case bus.ActionReserveStock:
		payload, ok := msg.Payload.(bus.ReserveStock)
		if !ok {
			return bus.BadPayload(msg)
		}
		return m.svc.Reserve(payload.ProductID, payload.Quantity, payload.ReferenceID)

	case bus.ActionDeductStock:
		payload, ok := msg.Payload.(bus.DeductStock)
		if !ok {
			return bus.BadPayload(msg)
		}
		_, err := m.svc.UpdateStock(MovementInput{
			ProductID:     payload.ProductID,
			Quantity:      payload.Quantity,
			Type:          MovementOut,
			ReferenceType: payload.ReferenceType,
			ReferenceID:   payload.ReferenceID,
			Line:          payload.Line,
			Notes:         payload.Notes,
		})
		return err

	case bus.ActionGetProduct:
		payload, ok := msg.Payload.(bus.GetProduct)
		if !ok {
			return bus.BadPayload(msg)
		}
		snapshot := bus.ProductSnapshot{ProductID: payload.ProductID}
		if p, err := m.svc.Product(payload.ProductID); err == nil {
			snapshot = bus.ProductSnapshot{
				Found:        true,
				ProductID:    p.ID,
				Code:         p.Code,
				Name:         p.Name,
				SellingPrice: p.SellingPrice,
				TaxRate:      p.TaxRate,
				Stock:        p.StockQuantity,
			}
		}
		m.pub.Send(msg.Reply(bus.ActionProductReply, snapshot))
		return nil

	case bus.ActionGetAllProducts:
		if _, ok := msg.Payload.(bus.GetAllProducts); !ok {
			return bus.BadPayload(msg)
		}
		products := m.svc.AllProducts()
		list := bus.ProductList{Products: make([]bus.ProductSnapshot, 0, len(products))}
		for _, p := range products {
			list.Products = append(list.Products, bus.ProductSnapshot{
				Found:        true,
				ProductID:    p.ID,
				Code:         p.Code,
				Name:         p.Name,
				SellingPrice: p.SellingPrice,
				TaxRate:      p.TaxRate,
				Stock:        p.StockQuantity,
			})
		}
		m.pub.Send(msg.Reply(bus.ActionProductListReply, list))
		return nil

	case bus.ActionPrepareProducts:
		payload, ok := msg.Payload.(bus.PrepareProducts)
		if !ok {
			return bus.BadPayload(msg)
		}
		// Pre-staging verifies the products exist before the session goes live.
		var missing []string
		for _, id := range payload.ProductIDs {
			if _, err := m.svc.Product(id); err != nil {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("inventory: prepare session %s: unknown products %v", payload.SessionID, missing)
		}
		return nil

	case bus.ActionStockAlert:
		// Broadcast echo of our own concern from another sender; nothing to do.
		return nil

	default:
		return fmt.Errorf("inventory: unknown action %q", msg.Action)
	}
}

// Health implements runtime.Module.
func (m *Module) Health() runtime.Health {
	s := m.svc
	s.mu.Lock()
	total := len(s.products)
	var active, low int
	var value float64
	for _, p := range s.products {
		if p.IsActive {
			active++
			if p.StockQuantity <= p.ReorderLevel {
				low++
			}
		}
		value += p.CostPrice * p.StockQuantity
	}
	movements := len(s.movements)
	holds := len(s.holds)
	s.mu.Unlock()

	return runtime.Health{
		Status: runtime.StatusHealthy,
		Metrics: map[string]float64{
			"total_products":        float64(total),
			"active_products":       float64(active),
			"total_stock_movements": float64(movements),
			"total_inventory_value": value,
			"low_stock_products":    float64(low),
			"active_holds":          float64(holds),
		},
	}
}
