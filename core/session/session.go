package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/rsrc-go/internal/shard"
)

// State is the lifecycle state of a Session.
type State int8

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
	StateLost
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateLost:
		return "lost"
	default:
		return fmt.Sprintf("state(%d)", int8(s))
	}
}

type Options struct {
	Transport Transport      // required
	Log       *slog.Logger   // optional, defaults to slog.Default()
	Metrics   SessionMetrics // optional
	NumShards uint32         // service partitions, default 1
	Seed      string         // partition hash seed
	ClientID  string         // optional, generated when empty
}

// Session is the process-wide logical connection to the cluster service.
// It is safe for concurrent use. Exactly one open or reopen is in flight
// at any instant.
type Session struct {
	t         Transport
	log       *slog.Logger
	metrics   SessionMetrics
	clientID  string
	numShards uint32
	seed      string

	// openMu serializes Open/Close so only one lifecycle round trip is in
	// flight at a time.
	openMu sync.Mutex

	mu         sync.Mutex
	state      State
	id         int64
	generation uint64
	listeners  []func(State)
}

func New(opts Options) (*Session, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("session: Options.Transport is required")
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	m := opts.Metrics
	if m == nil {
		m = NopSessionMetrics()
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("client-%s", gonanoid.Must(8))
	}

	numShards := opts.NumShards
	if numShards == 0 {
		numShards = 1
	}

	return &Session{
		t:         opts.Transport,
		log:       log.With(slog.String("client", clientID)),
		metrics:   m,
		clientID:  clientID,
		numShards: numShards,
		seed:      opts.Seed,
	}, nil
}

// ClientID returns the process-local client identifier.
func (s *Session) ClientID() string { return s.clientID }

// ID returns the server-assigned session id of the current generation, or
// 0 before the first successful open.
func (s *Session) ID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Generation counts successful opens. It increments on every reopen, so a
// rebind performed against generation N can detect it is stale once the
// session moves to N+1.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsOpen() bool   { return s.State() == StateOpen }
func (s *Session) IsClosed() bool { return s.State() == StateClosed }

// Subscribe registers fn to be called on every state transition. Callbacks
// run on the goroutine performing the transition and must not block.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Open establishes (or, after a loss, re-establishes) the session. Opening
// an already open session is a no-op. A closed session cannot be reopened.
func (s *Session) Open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	switch s.State() {
	case StateOpen:
		return nil
	case StateClosed:
		return ErrSessionClosed
	}

	resp, err := rawRequest[OpenSessionRequest, OpenSessionResponse](
		ctx, s, OpenSessionRequest{ClientID: s.clientID},
	)
	if err != nil {
		s.metrics.TransportError(classifyError(err))
		return fmt.Errorf("session: open: %w", err)
	}

	s.mu.Lock()
	s.id = resp.SessionID
	s.state = StateOpen
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.log.Info("session open", slog.Int64("session", resp.SessionID), slog.Uint64("generation", gen))
	s.notify(StateOpen)
	return nil
}

// Close ends the session. It releases the local binding only; resource
// state in the cluster is untouched. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	s.mu.Lock()
	prev := s.state
	id := s.id
	s.state = StateClosed
	s.mu.Unlock()

	if prev == StateClosed {
		return nil
	}

	// Best effort: tell the service when we still hold a live session.
	if prev == StateOpen {
		env := s.newEnv(CloseSessionRequest{}, nil)
		env.Session = id
		env.Shard = s.shardFor(env)
		if _, err := s.t.Request(ctx, env); err != nil {
			s.log.Warn("close session request failed", slog.Any("error", err))
		}
	}

	s.log.Info("session closed")
	s.notify(StateClosed)
	return nil
}

// Submit sends an envelope on the current session. While the session is
// Lost, Submit fails fast with ErrSessionLost; a response indicating the
// server no longer knows the session transitions to Lost exactly once per
// generation and notifies subscribers.
func (s *Session) Submit(ctx context.Context, env Envelope) ([]byte, error) {
	s.mu.Lock()
	switch s.state {
	case StateUnopened:
		s.mu.Unlock()
		return nil, ErrSessionNotOpen
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case StateLost:
		s.mu.Unlock()
		return nil, ErrSessionLost
	}
	env.Session = s.id
	gen := s.generation
	s.mu.Unlock()

	env.Shard = s.shardFor(env)
	if err := env.Validate(); err != nil {
		return nil, err
	}

	defer s.metrics.SubmitDuration(env.Type).ObserveDuration()

	data, err := s.t.Request(ctx, env)
	s.metrics.SubmitCompleted(env.Type, err == nil)
	if err != nil {
		s.metrics.TransportError(classifyError(err))
		if IsUnknownSession(err) {
			s.markLost(gen)
			return nil, ErrSessionLost
		}
		return nil, err
	}
	return data, nil
}

// Request submits a typed protocol message and decodes the typed response.
func Request[IN any, OUT any](ctx context.Context, s *Session, payload IN, opts ...EnvelopeOption) (*OUT, error) {
	env := s.newEnv(payload, opts)
	data, err := s.Submit(ctx, env)
	if err != nil {
		return nil, err
	}
	out := new(OUT)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("session: decode %s response: %w", env.Type, err)
	}
	return out, nil
}

// markLost flips Open -> Lost for the given generation. Duplicate failures
// from the same generation race here; only the first one transitions.
func (s *Session) markLost(gen uint64) {
	s.mu.Lock()
	if s.state != StateOpen || s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.state = StateLost
	s.mu.Unlock()

	s.log.Warn("session lost", slog.Uint64("generation", gen))
	s.notify(StateLost)
}

func (s *Session) notify(st State) {
	s.mu.Lock()
	listeners := make([]func(State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.metrics.StateChanged(st.String())
	for _, fn := range listeners {
		fn(st)
	}
}

func (s *Session) newEnv(payload any, opts []EnvelopeOption) Envelope {
	data, _ := json.Marshal(payload)
	env := Envelope{
		Type: messageType(payload),
		Data: data,
	}
	for _, opt := range opts {
		opt(&env)
	}
	return env
}

// shardFor routes an envelope by its partition key: the key header when
// present, the target resource id otherwise, the client id as a last
// resort (lifecycle messages).
func (s *Session) shardFor(env Envelope) int {
	key, ok := env.GetHeader(HeaderKey)
	if !ok {
		if env.Resource > 0 {
			key = strconv.FormatInt(env.Resource, 10)
		} else {
			key = s.clientID
		}
	}
	return int(shard.FromString(key, s.numShards, s.seed))
}

// rawRequest bypasses the state checks in Submit. Used by Open, which must
// send while the session is not (yet) open.
func rawRequest[IN any, OUT any](ctx context.Context, s *Session, payload IN) (*OUT, error) {
	env := s.newEnv(payload, nil)
	env.Shard = s.shardFor(env)

	defer s.metrics.SubmitDuration(env.Type).ObserveDuration()
	data, err := s.t.Request(ctx, env)
	s.metrics.SubmitCompleted(env.Type, err == nil)
	if err != nil {
		return nil, err
	}
	out := new(OUT)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("session: decode %s response: %w", env.Type, err)
	}
	return out, nil
}

func classifyError(err error) string {
	var se *ServiceError
	switch {
	case errors.As(err, &se):
		if se.Code == CodeUnknownSession {
			return "session_lost"
		}
		return "service"
	case errors.Is(err, ErrTransportClosed):
		return "closed"
	case errors.Is(err, ErrEnvelopeExpired):
		return "expired"
	default:
		return "other"
	}
}
