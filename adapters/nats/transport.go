package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	natsgo "github.com/nats-io/nats.go"

	"github.com/codewandler/rsrc-go/core/session"
)

type TransportConfig struct {
	Connect       Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log           *slog.Logger // Log for diagnostics (optional)
	SubjectPrefix string       // SubjectPrefix for shard subjects, e.g. "rsrc" -> rsrc.shard.<id>
}

type Transport struct {
	nc      *natsgo.Conn
	closeNc closeFunc
	log     *slog.Logger
	prefix  string

	mu   sync.Mutex
	subs map[*natsgo.Subscription]struct{}

	closed atomic.Bool
}

// responseFrame is the minimal response encoding for Request(). Must match
// the core/session in-memory transport: Code carries the service error code
// the session layer keys loss detection on.
type responseFrame struct {
	Data []byte `json:"data,omitempty"`
	Err  string `json:"err,omitempty"`
	Code string `json:"code,omitempty"`
}

func NewTransport(cfg TransportConfig) (*Transport, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	t := &Transport{
		nc:      nc,
		closeNc: closeNc,
		log:     log.With(slog.String("transport", "nats")),
		prefix:  cfg.SubjectPrefix,
		subs:    make(map[*natsgo.Subscription]struct{}),
	}

	return t, nil
}

// subjectShard returns the subject used for a shard.
func (t *Transport) subjectShard(shardID uint32) string {
	p := t.prefix
	if p == "" {
		p = "rsrc"
	}
	return p + ".shard." + strconv.FormatUint(uint64(shardID), 10)
}

func (t *Transport) Request(ctx context.Context, env session.Envelope) ([]byte, error) {
	if t.closed.Load() {
		return nil, session.ErrTransportClosed
	}
	if env.Expired() {
		return nil, session.ErrEnvelopeExpired
	}

	// Create a reply inbox and subscription
	inbox := natsgo.NewInbox()
	ch := make(chan *natsgo.Msg, 1)
	sub, err := t.nc.ChanSubscribe(inbox, ch)
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe inbox: %w", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
		close(ch)
	}()

	env.ReplyTo = inbox

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	subj := t.subjectShard(uint32(env.Shard))
	if err := t.nc.Publish(subj, payload); err != nil {
		return nil, fmt.Errorf("nats: publish: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-ch:
		if !ok {
			return nil, session.ErrTransportClosed
		}
		var rf responseFrame
		if err := json.Unmarshal(msg.Data, &rf); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if rf.Code != "" {
			return nil, &session.ServiceError{Code: rf.Code, Message: rf.Err}
		}
		if rf.Err != "" {
			return nil, errors.New(rf.Err)
		}
		return rf.Data, nil
	}
}

func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return session.ErrTransportClosed
	}
	t.mu.Lock()
	for s := range t.subs {
		_ = s.Unsubscribe()
	}
	t.subs = map[*natsgo.Subscription]struct{}{}
	t.mu.Unlock()
	if t.nc != nil {
		t.nc.Drain()
		t.closeNc()
	}
	return nil
}

// ServeShard hosts a service handler for one shard subject. The handler's
// error, when a *session.ServiceError, travels as a coded frame so clients
// can distinguish session loss from plain failures.
func (t *Transport) ServeShard(ctx context.Context, shardID uint32, h session.ServiceHandlerFunc) (*Subscription, error) {
	if t.closed.Load() {
		return nil, session.ErrTransportClosed
	}
	subj := t.subjectShard(shardID)

	sub, err := t.nc.Subscribe(subj, func(msg *natsgo.Msg) {
		var env session.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.log.Error("failed to decode envelope", slog.Any("error", err))
			return
		}

		data, err := h(ctx, env)
		rf := responseFrame{Data: data}
		if err != nil {
			rf.Data = nil
			rf.Err = err.Error()
			var se *session.ServiceError
			if errors.As(err, &se) {
				rf.Err = se.Message
				rf.Code = se.Code
			}
		}
		b, _ := json.Marshal(rf)

		if env.ReplyTo != "" {
			if err := t.nc.Publish(env.ReplyTo, b); err != nil {
				t.log.Error("failed to publish reply", slog.Any("error", err))
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe shard: %w", err)
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	// Handle context cancellation by auto-unsubscribing
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		t.mu.Lock()
		delete(t.subs, sub)
		t.mu.Unlock()
	}()

	return &Subscription{sub: sub, t: t}, nil
}

type Subscription struct {
	sub *natsgo.Subscription
	t   *Transport
}

func (s *Subscription) Unsubscribe() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.t.mu.Lock()
	delete(s.t.subs, s.sub)
	s.t.mu.Unlock()
	return err
}

var _ session.Transport = &Transport{}
