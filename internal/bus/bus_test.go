package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	id    ModuleID
	onMsg func(msg Message)
	mu    sync.Mutex
	seen  []Message
}

func (h *recordingHandler) ModuleID() ModuleID { return h.id }

func (h *recordingHandler) Handle(_ context.Context, msg Message) {
	h.mu.Lock()
	h.seen = append(h.seen, msg)
	h.mu.Unlock()
	if h.onMsg != nil {
		h.onMsg(msg)
	}
}

func (h *recordingHandler) received() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.seen))
	copy(out, h.seen)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSendDeliversToAddressedModule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus(nil)
	inv := &recordingHandler{id: ModuleInventory}
	sales := &recordingHandler{id: ModuleSales}
	b.Register(inv)
	b.Register(sales)
	b.Start(ctx)

	b.Send(New(ModuleSales, ModuleInventory, ActionCheckStock, CheckStock{ProductID: "p1", Quantity: 2}))

	waitFor(t, func() bool { return len(inv.received()) == 1 })
	require.Empty(t, sales.received())
	got := inv.received()[0]
	require.Equal(t, ActionCheckStock, got.Action)
	require.Equal(t, ModuleSales, got.From)
}

func TestBroadcastSkipsSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus(nil)
	inv := &recordingHandler{id: ModuleInventory}
	sales := &recordingHandler{id: ModuleSales}
	ledger := &recordingHandler{id: ModuleLedger}
	b.Register(inv)
	b.Register(sales)
	b.Register(ledger)
	b.Start(ctx)

	b.Send(New(ModuleInventory, BroadcastAll, ActionStockAlert, StockAlert{ProductID: "p1"}))

	waitFor(t, func() bool {
		return len(sales.received()) == 1 && len(ledger.received()) == 1
	})
	require.Empty(t, inv.received(), "broadcast must not echo to the sender")
}

func TestRequestReceivesCorrelatedReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus(nil)
	inv := &recordingHandler{id: ModuleInventory}
	inv.onMsg = func(msg Message) {
		b.Send(msg.Reply(ActionStockCheckReply, StockCheckResult{
			ProductID: "p1", Available: true, CurrentStock: 7,
		}))
	}
	sales := &recordingHandler{id: ModuleSales}
	b.Register(inv)
	b.Register(sales)
	b.Start(ctx)

	reply, err := b.Request(ctx, New(ModuleSales, ModuleInventory, ActionCheckStock, CheckStock{ProductID: "p1", Quantity: 5}))
	require.NoError(t, err)
	require.Equal(t, ActionStockCheckReply, reply.Action)
	result, ok := reply.Payload.(StockCheckResult)
	require.True(t, ok)
	require.True(t, result.Available)
	require.InDelta(t, 7, result.CurrentStock, 0.001)

	// The reply resolved the waiting request; it must not also land in the
	// sales mailbox.
	require.Empty(t, sales.received())
}

func TestRequestTimesOutWithoutReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus(nil)
	inv := &recordingHandler{id: ModuleInventory} // never replies
	b.Register(inv)
	b.Start(ctx)

	reqCtx, reqCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer reqCancel()
	_, err := b.Request(reqCtx, New(ModuleSales, ModuleInventory, ActionCheckStock, CheckStock{ProductID: "p1"}))
	require.ErrorIs(t, err, ErrNoReply)
}

func TestSendToUnknownModuleDoesNotBlock(t *testing.T) {
	b := NewBus(nil)
	// No modules registered at all; Send must drop silently.
	b.Send(New(ModuleSales, ModuleInventory, ActionCheckStock, CheckStock{ProductID: "p1"}))
}

func TestFullMailboxDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus(nil)
	inv := &recordingHandler{id: ModuleInventory}
	b.Register(inv)
	// Consumers never started: the mailbox fills and further sends drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultMailboxSize+10; i++ {
			b.Send(New(ModuleSales, ModuleInventory, ActionCheckStock, CheckStock{ProductID: "p1"}))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked on a full mailbox")
	}
}

func TestSequentialHandlingPerModule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus(nil)
	var active, maxActive int
	var mu sync.Mutex
	inv := &recordingHandler{id: ModuleInventory}
	inv.onMsg = func(Message) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}
	b.Register(inv)
	b.Start(ctx)

	for i := 0; i < 20; i++ {
		b.Send(New(ModuleSales, ModuleInventory, ActionCheckStock, CheckStock{ProductID: "p1"}))
	}
	waitFor(t, func() bool { return len(inv.received()) == 20 })
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, maxActive, "one module must never handle two messages concurrently")
}
