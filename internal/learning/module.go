package learning

import (
	"context"
	"fmt"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/runtime"
)

// Publisher is the sending half of the bus.
type Publisher interface {
	Send(msg bus.Message)
}

// Module adapts the service to the bus.
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
	return bus.ModuleLearning
}

// Handle matches the closed action set.
func (m *Module) Handle(ctx context.Context, msg bus.Message) error {
	switch msg.Action {
	case bus.ActionLogLearningEvent:
		payload, ok := msg.Payload.(bus.LogLearningEvent)
		if !ok {
			return bus.BadPayload(msg)
		}
		_, err := m.svc.LogEvent(ctx, EventInput{
			Module:    payload.Module,
			EventType: payload.EventType,
			Category:  payload.Category,
			Severity:  Severity(payload.Severity),
			Data:      payload.Data,
			Tags:      payload.Tags,
		})
		return err

	case bus.ActionStockAlert:
		payload, ok := msg.Payload.(bus.StockAlert)
		if !ok {
			return bus.BadPayload(msg)
		}
		// Reorder alerts feed the pattern detector: chronically low products
		// surface as a recurring stock pattern.
		_, err := m.svc.LogEvent(ctx, EventInput{
			Module:    string(msg.From),
			EventType: "low_stock:" + payload.ProductID,
			Category:  "stock",
			Severity:  SeverityWarning,
			Data: map[string]any{
				"product_id":    payload.ProductID,
				"product_name":  payload.ProductName,
				"current_stock": payload.CurrentStock,
				"reorder_level": payload.ReorderLevel,
			},
		})
		return err

	case bus.ActionGetInsights:
		payload, ok := msg.Payload.(bus.GetInsights)
		if !ok {
			return bus.BadPayload(msg)
		}
		patterns := m.svc.Patterns(payload.TopN)
		report := bus.InsightsReport{Patterns: make([]bus.LearningPattern, 0, len(patterns))}
		for _, p := range patterns {
			report.Patterns = append(report.Patterns, bus.LearningPattern{
				Pattern:        p.Key,
				Frequency:      p.Frequency,
				LastOccurrence: p.LastOccurrence,
				Recommendation: p.Recommendation,
			})
		}
		m.pub.Send(msg.Reply(bus.ActionInsightsReply, report))
		return nil

	case bus.ActionGetRecentEvents:
		payload, ok := msg.Payload.(bus.GetRecentEvents)
		if !ok {
			return bus.BadPayload(msg)
		}
		events := m.svc.Recent(payload.Limit)
		reply := bus.RecentEvents{Events: make([]bus.RecentEvent, 0, len(events))}
		for _, e := range events {
			reply.Events = append(reply.Events, bus.RecentEvent{
				ID:        e.ID,
				Timestamp: e.Timestamp,
				Module:    e.Module,
				EventType: e.EventType,
				Category:  e.Category,
				Severity:  string(e.Severity),
			})
		}
		m.pub.Send(msg.Reply(bus.ActionRecentEventsReply, reply))
		return nil

	default:
		return fmt.Errorf("learning: unknown action %q", msg.Action)
	}
}

// Health implements runtime.Module.
func (m *Module) Health() runtime.Health {
	stats := m.svc.Stats()
	return runtime.Health{
		Status: runtime.StatusHealthy,
		Metrics: map[string]float64{
			"total_events":   float64(stats.TotalEvents),
			"patterns_found": float64(stats.PatternsFound),
			"error_events":   float64(stats.BySeverity[string(SeverityError)] + stats.BySeverity[string(SeverityCritical)]),
		},
	}
}
