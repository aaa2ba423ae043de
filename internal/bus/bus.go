package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler consumes messages addressed to one module. Handling is sequential
// per module: two messages to the same module never interleave.
type Handler interface {
	ModuleID() ModuleID
	Handle(ctx context.Context, msg Message)
}

// ErrNoReply indicates a request that was not answered before the context ended.
var ErrNoReply = errors.New("bus: no reply")

const defaultMailboxSize = 256

// Bus routes messages between registered modules. Sends are fire-and-forget;
// Request blocks the caller until the correlated reply arrives.
type Bus struct {
	logger  *slog.Logger
	mailbox int

	mu       sync.RWMutex
	handlers map[ModuleID]Handler
	boxes    map[ModuleID]chan Message
	pending  map[uuid.UUID]chan Message
	started  bool

	wg sync.WaitGroup
}

// NewBus constructs an idle bus. Register modules, then Start.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		mailbox:  defaultMailboxSize,
		handlers: make(map[ModuleID]Handler),
		boxes:    make(map[ModuleID]chan Message),
		pending:  make(map[uuid.UUID]chan Message),
	}
}

// Register wires a module's mailbox. Must be called before Start.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := h.ModuleID()
	b.handlers[id] = h
	b.boxes[id] = make(chan Message, b.mailbox)
}

// Start launches one consumer goroutine per registered module and runs until
// ctx is cancelled.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	for id, box := range b.boxes {
		h := b.handlers[id]
		b.wg.Add(1)
		go b.consume(ctx, h, box)
	}
	b.mu.Unlock()
}

// Wait blocks until every consumer has drained after cancellation.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) consume(ctx context.Context, h Handler, box chan Message) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-box:
			h.Handle(ctx, msg)
		}
	}
}

// Send delivers a message at most once. Replies resolve their waiting request
// first; broadcasts reach every module except the sender. Undeliverable
// messages are dropped and logged, never retried.
func (b *Bus) Send(msg Message) {
	if msg.IsReply() && b.resolve(msg) {
		return
	}
	if msg.To == BroadcastAll {
		b.mu.RLock()
		defer b.mu.RUnlock()
		for id, box := range b.boxes {
			if id == msg.From {
				continue
			}
			b.deliver(id, box, msg)
		}
		return
	}
	b.mu.RLock()
	box, ok := b.boxes[msg.To]
	b.mu.RUnlock()
	if !ok {
		b.logger.Warn("bus: dropping message for unknown module",
			"to", string(msg.To), "action", string(msg.Action))
		return
	}
	b.deliver(msg.To, box, msg)
}

func (b *Bus) deliver(id ModuleID, box chan Message, msg Message) {
	select {
	case box <- msg:
	default:
		b.logger.Warn("bus: mailbox full, dropping message",
			"to", string(id), "action", string(msg.Action))
	}
}

// Request sends msg and blocks until the correlated reply arrives or ctx ends.
func (b *Bus) Request(ctx context.Context, msg Message) (Message, error) {
	waiter := make(chan Message, 1)
	b.mu.Lock()
	b.pending[msg.ID] = waiter
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, msg.ID)
		b.mu.Unlock()
	}()

	b.Send(msg)

	select {
	case <-ctx.Done():
		return Message{}, errors.Join(ErrNoReply, ctx.Err())
	case reply := <-waiter:
		return reply, nil
	}
}

func (b *Bus) resolve(reply Message) bool {
	b.mu.RLock()
	waiter, ok := b.pending[reply.ReplyTo]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case waiter <- reply:
	default:
	}
	return true
}
