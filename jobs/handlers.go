package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/haderos-erp/haderos-core/internal/inventory"
	"github.com/haderos-erp/haderos-core/internal/learning"
	"github.com/haderos-erp/haderos-core/internal/liveshop"
)

// Handlers binds the periodic tasks to the live module services.
type Handlers struct {
	Logger    *slog.Logger
	LiveShop  *liveshop.Service
	Inventory *inventory.Service
	Learning  *learning.Service
	Archive   *learning.PGArchive
}

// HandleExpireCarts abandons every live-shopping cart past its expiry.
func (h *Handlers) HandleExpireCarts(ctx context.Context, t *asynq.Task) error {
	var payload ExpireCartsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	expired := h.LiveShop.ExpireCarts()
	if expired > 0 {
		h.Logger.Info("cart sweep", "expired", expired)
	}
	return nil
}

// HandleReorderScan logs one learning event per product at or below its
// reorder level, feeding the chronic-low-stock pattern.
func (h *Handlers) HandleReorderScan(ctx context.Context, t *asynq.Task) error {
	var payload ReorderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	low := h.Inventory.BelowReorderLevel()
	for _, p := range low {
		_, err := h.Learning.LogEvent(ctx, learning.EventInput{
			Module:    "inventory",
			EventType: "low_stock:" + p.ID,
			Category:  "stock",
			Severity:  learning.SeverityWarning,
			Data: map[string]any{
				"product_id":    p.ID,
				"product_name":  p.Name,
				"current_stock": p.StockQuantity,
				"reorder_level": p.ReorderLevel,
			},
		})
		if err != nil {
			return err
		}
	}
	h.Logger.Info("reorder scan", "low_stock_products", len(low))
	return nil
}

// HandleLearningDigest logs the current pattern summary and prunes old
// archived events.
func (h *Handlers) HandleLearningDigest(ctx context.Context, t *asynq.Task) error {
	var payload LearningDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	stats := h.Learning.Stats()
	h.Logger.Info("learning digest",
		"total_events", stats.TotalEvents, "patterns", stats.PatternsFound)
	for _, p := range h.Learning.Patterns(10) {
		h.Logger.Info("active pattern",
			"pattern", p.Key, "frequency", p.Frequency, "recommendation", p.Recommendation)
	}
	if h.Archive != nil && payload.KeepDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -payload.KeepDays)
		pruned, err := h.Archive.PruneBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if pruned > 0 {
			h.Logger.Info("archive pruned", "rows", pruned)
		}
	}
	return nil
}
