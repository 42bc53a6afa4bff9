package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// responseFrame is the minimal response encoding for Request(). Transports
// stay backend-agnostic because it's just bytes on the wire; the NATS
// adapter uses the identical frame.
type responseFrame struct {
	Data []byte `json:"data,omitempty"`
	Err  string `json:"err,omitempty"`
	Code string `json:"code,omitempty"`
}

func encodeFrame(data []byte, err error) []byte {
	rf := responseFrame{Data: data}
	if err != nil {
		rf.Data = nil
		rf.Err = err.Error()
		var se *ServiceError
		if errors.As(err, &se) {
			rf.Err = se.Message
			rf.Code = se.Code
		}
	}
	b, _ := json.Marshal(rf)
	return b
}

func decodeFrame(b []byte) ([]byte, error) {
	var rf responseFrame
	if err := json.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rf.Code != "" {
		return nil, &ServiceError{Code: rf.Code, Message: rf.Err}
	}
	if rf.Err != "" {
		return nil, errors.New(rf.Err)
	}
	return rf.Data, nil
}

// MemoryTransport delivers envelopes to an in-process handler. Delivery is
// asynchronous (one goroutine per request) so it exercises the same
// suspension points as a networked transport.
type MemoryTransport struct {
	mu  sync.RWMutex
	log *slog.Logger

	closed  bool
	handler ServiceHandlerFunc

	// replyTo -> chan response bytes
	inboxes map[string]chan []byte

	seq uint64
}

func NewInMemoryTransport(h ServiceHandlerFunc) *MemoryTransport {
	return &MemoryTransport{
		log:     slog.New(slog.DiscardHandler),
		handler: h,
		inboxes: make(map[string]chan []byte),
	}
}

func (t *MemoryTransport) WithLog(log *slog.Logger) *MemoryTransport {
	t.log = log.With(slog.String("transport", "mem"))
	return t
}

func (t *MemoryTransport) Request(ctx context.Context, env Envelope) ([]byte, error) {
	if env.Expired() {
		return nil, ErrEnvelopeExpired
	}

	replyTo := t.newInboxID()
	replyCh, err := t.registerInbox(replyTo)
	if err != nil {
		return nil, err
	}
	defer t.unregisterInbox(replyTo)

	env.ReplyTo = replyTo

	t.mu.RLock()
	h := t.handler
	closed := t.closed
	t.mu.RUnlock()

	if closed {
		return nil, ErrTransportClosed
	}
	if h == nil {
		return nil, ErrNoService
	}

	go t.invokeHandler(ctx, h, env)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case b, ok := <-replyCh:
		if !ok {
			return nil, ErrTransportClosed
		}
		return decodeFrame(b)
	}
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	// Close all inbox channels so waiters unblock.
	for k, ch := range t.inboxes {
		close(ch)
		delete(t.inboxes, k)
	}

	t.log.Debug("closed")

	return nil
}

func (t *MemoryTransport) invokeHandler(ctx context.Context, h ServiceHandlerFunc, env Envelope) {
	resp, err := h(ctx, env)
	b := encodeFrame(resp, err)

	// Lookup and send happen under the lock: inbox channels are only
	// closed under the write lock, so a reply racing a canceled requester
	// is dropped here instead of hitting a closed channel.
	t.mu.RLock()
	defer t.mu.RUnlock()

	ch := t.inboxes[env.ReplyTo]
	if ch == nil {
		t.log.Warn("dropping response", slog.String("replyTo", env.ReplyTo))
		return // requester timed out/canceled; drop
	}

	// Buffered 1, one response per inbox: the send never blocks.
	select {
	case ch <- b:
	default:
	}
}

func (t *MemoryTransport) newInboxID() string {
	n := atomic.AddUint64(&t.seq, 1)
	return fmt.Sprintf("inbox.%d", n)
}

func (t *MemoryTransport) registerInbox(replyTo string) (<-chan []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}
	// Buffered 1 so the handler can respond even if the requester is just
	// about to select().
	ch := make(chan []byte, 1)
	t.inboxes[replyTo] = ch
	return ch, nil
}

func (t *MemoryTransport) unregisterInbox(replyTo string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := t.inboxes[replyTo]
	if ch != nil {
		close(ch)
		delete(t.inboxes, replyTo)
	}
}

var _ Transport = (*MemoryTransport)(nil)
