// Package runtime provides the scaffold every business module runs on:
// identity, a message handler contract, structured logging, and self-reported
// health. A failure inside a handler is contained at this boundary; it is
// counted and logged, never retried, and never crashes the module.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/haderos-erp/haderos-core/internal/bus"
)

// Module is the contract each business module implements.
type Module interface {
	ID() bus.ModuleID
	Handle(ctx context.Context, msg bus.Message) error
	Health() Health
}

// Health is the operational snapshot a module reports. It feeds monitoring
// only and has no effect on business correctness.
type Health struct {
	Status  string             `json:"status"`
	Metrics map[string]float64 `json:"metrics"`
}

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// degradedErrorRatio marks a module degraded once errors exceed 10% of traffic.
const degradedErrorRatio = 0.10

// Publisher lets the runtime surface handler failures to the learning module.
type Publisher interface {
	Send(msg bus.Message)
}

// Instrumented wraps a module with the runtime boundary: per-message logging,
// counters, latency tracking and panic recovery. It is what the bus sees.
type Instrumented struct {
	module Module
	logger *slog.Logger
	pub    Publisher

	mu           sync.Mutex
	handled      uint64
	errors       uint64
	totalLatency time.Duration
	lastActivity time.Time
}

// Instrument wraps module for registration on the bus.
func Instrument(module Module, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{
		module: module,
		logger: logger.With("module", string(module.ID())),
	}
}

// WithPublisher routes handler failures to the learning module as
// error-severity events.
func (i *Instrumented) WithPublisher(pub Publisher) *Instrumented {
	i.pub = pub
	return i
}

// ModuleID implements bus.Handler.
func (i *Instrumented) ModuleID() bus.ModuleID {
	return i.module.ID()
}

// Handle implements bus.Handler. Errors and panics are absorbed here.
func (i *Instrumented) Handle(ctx context.Context, msg bus.Message) {
	start := time.Now()
	err := i.safeHandle(ctx, msg)
	elapsed := time.Since(start)

	i.mu.Lock()
	i.handled++
	if err != nil {
		i.errors++
	}
	i.totalLatency += elapsed
	i.lastActivity = start
	i.mu.Unlock()

	if err != nil {
		i.logger.Error("message handling failed",
			"action", string(msg.Action), "from", string(msg.From), "error", err)
		// Partial cross-module effects are never rolled back; operators learn
		// about them through the learning module's error log.
		if i.pub != nil && i.module.ID() != bus.ModuleLearning {
			i.pub.Send(bus.New(i.module.ID(), bus.ModuleLearning, bus.ActionLogLearningEvent, bus.LogLearningEvent{
				Module:    string(i.module.ID()),
				EventType: "handler_failure:" + string(msg.Action),
				Category:  "error",
				Severity:  "error",
				Data:      map[string]any{"error": err.Error(), "from": string(msg.From)},
			}))
		}
		return
	}
	i.logger.Debug("message handled",
		"action", string(msg.Action), "from", string(msg.From), "elapsed", elapsed)
}

func (i *Instrumented) safeHandle(ctx context.Context, msg bus.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return i.module.Handle(ctx, msg)
}

// Health merges the module's own metrics with runtime counters.
func (i *Instrumented) Health() Health {
	i.mu.Lock()
	handled := i.handled
	errs := i.errors
	total := i.totalLatency
	last := i.lastActivity
	i.mu.Unlock()

	h := i.module.Health()
	if h.Metrics == nil {
		h.Metrics = make(map[string]float64)
	}
	h.Metrics["events_handled"] = float64(handled)
	h.Metrics["errors"] = float64(errs)
	if handled > 0 {
		h.Metrics["avg_latency_ms"] = float64(total.Milliseconds()) / float64(handled)
	}
	if !last.IsZero() {
		h.Metrics["last_activity_unix"] = float64(last.Unix())
	}
	if handled > 0 && float64(errs)/float64(handled) > degradedErrorRatio {
		h.Status = StatusDegraded
	}
	return h
}
