package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haderos-erp/haderos-core/internal/bus"
)

type scriptedModule struct {
	id      bus.ModuleID
	handle  func(msg bus.Message) error
	handled int
}

func (m *scriptedModule) ID() bus.ModuleID { return m.id }

func (m *scriptedModule) Handle(_ context.Context, msg bus.Message) error {
	m.handled++
	if m.handle != nil {
		return m.handle(msg)
	}
	return nil
}

func (m *scriptedModule) Health() Health {
	return Health{Status: StatusHealthy, Metrics: map[string]float64{"custom": 42}}
}

type capturePublisher struct {
	mu   sync.Mutex
	sent []bus.Message
}

func (p *capturePublisher) Send(msg bus.Message) {
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()
}

func (p *capturePublisher) messages() []bus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bus.Message, len(p.sent))
	copy(out, p.sent)
	return out
}

func testMessage() bus.Message {
	return bus.New(bus.ModuleSales, bus.ModuleInventory, bus.ActionCheckStock, bus.CheckStock{ProductID: "p1"})
}

func TestPanicIsContained(t *testing.T) {
	mod := &scriptedModule{id: bus.ModuleInventory, handle: func(bus.Message) error {
		panic("boom")
	}}
	wrapped := Instrument(mod, nil)

	require.NotPanics(t, func() {
		wrapped.Handle(context.Background(), testMessage())
	})
	h := wrapped.Health()
	require.EqualValues(t, 1, h.Metrics["events_handled"])
	require.EqualValues(t, 1, h.Metrics["errors"])
}

func TestHealthyBelowErrorRatio(t *testing.T) {
	calls := 0
	mod := &scriptedModule{id: bus.ModuleInventory, handle: func(bus.Message) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}}
	wrapped := Instrument(mod, nil)

	for i := 0; i < 20; i++ {
		wrapped.Handle(context.Background(), testMessage())
	}
	h := wrapped.Health()
	require.Equal(t, StatusHealthy, h.Status)
	require.EqualValues(t, 20, h.Metrics["events_handled"])
	require.EqualValues(t, 1, h.Metrics["errors"])
	require.EqualValues(t, 42, h.Metrics["custom"], "module metrics must survive the merge")
}

func TestDegradedAboveErrorRatio(t *testing.T) {
	mod := &scriptedModule{id: bus.ModuleInventory, handle: func(bus.Message) error {
		return errors.New("persistent")
	}}
	wrapped := Instrument(mod, nil)

	for i := 0; i < 5; i++ {
		wrapped.Handle(context.Background(), testMessage())
	}
	require.Equal(t, StatusDegraded, wrapped.Health().Status)
}

func TestHandlerFailurePublishesLearningEvent(t *testing.T) {
	pub := &capturePublisher{}
	mod := &scriptedModule{id: bus.ModuleInventory, handle: func(bus.Message) error {
		return errors.New("deduct failed")
	}}
	wrapped := Instrument(mod, nil).WithPublisher(pub)

	wrapped.Handle(context.Background(), testMessage())

	sent := pub.messages()
	require.Len(t, sent, 1)
	require.Equal(t, bus.ModuleLearning, sent[0].To)
	require.Equal(t, bus.ActionLogLearningEvent, sent[0].Action)
	payload, ok := sent[0].Payload.(bus.LogLearningEvent)
	require.True(t, ok)
	require.Equal(t, "error", payload.Severity)
	require.Equal(t, "handler_failure:check_stock", payload.EventType)
}

func TestLearningModuleFailuresAreNotRepublished(t *testing.T) {
	pub := &capturePublisher{}
	mod := &scriptedModule{id: bus.ModuleLearning, handle: func(bus.Message) error {
		return errors.New("log failed")
	}}
	wrapped := Instrument(mod, nil).WithPublisher(pub)

	wrapped.Handle(context.Background(), testMessage())
	require.Empty(t, pub.messages(), "learning failures must not feed back into learning")
}

func TestSuccessPublishesNothing(t *testing.T) {
	pub := &capturePublisher{}
	mod := &scriptedModule{id: bus.ModuleInventory}
	wrapped := Instrument(mod, nil).WithPublisher(pub)

	wrapped.Handle(context.Background(), testMessage())
	require.Empty(t, pub.messages())
	require.Equal(t, 1, mod.handled)
}
