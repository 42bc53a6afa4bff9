package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_New_RequiresTransport(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestSession_Lifecycle(t *testing.T) {
	svc, tr := CreateTestService(t)
	s := CreateTestSession(t, tr)

	require.Equal(t, StateUnopened, s.State())
	require.Zero(t, s.ID())

	// submissions before open fail synchronously
	_, err := Request[ResourceExistsRequest, ResourceExistsResponse](
		t.Context(), s, ResourceExistsRequest{Key: "k"},
	)
	require.ErrorIs(t, err, ErrSessionNotOpen)

	require.NoError(t, s.Open(t.Context()))
	require.True(t, s.IsOpen())
	require.Equal(t, int64(1), s.ID())
	require.Equal(t, uint64(1), s.Generation())

	// open is idempotent
	require.NoError(t, s.Open(t.Context()))
	require.Equal(t, uint64(1), s.Generation())

	require.NoError(t, s.Close(t.Context()))
	require.True(t, s.IsClosed())
	require.Zero(t, svc.OpenSessions())

	// closed is terminal
	require.ErrorIs(t, s.Open(t.Context()), ErrSessionClosed)
	_, err = s.Submit(t.Context(), Envelope{Type: MsgResourceExists})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_Request(t *testing.T) {
	svc, tr := CreateTestService(t)
	s := CreateTestSession(t, tr)
	require.NoError(t, s.Open(t.Context()))

	resp, err := Request[ResourceExistsRequest, ResourceExistsResponse](
		t.Context(), s, ResourceExistsRequest{Key: "nothing-here"},
	)
	require.NoError(t, err)
	require.False(t, resp.Exists)

	got, err := Request[GetResourceRequest, ResourceIDResponse](
		t.Context(), s, GetResourceRequest{Key: "k1", Type: "counter"},
		WithHeader(HeaderKey, "k1"),
	)
	require.NoError(t, err)
	require.Positive(t, got.ResourceID)
	require.Equal(t, got.ResourceID, svc.ResourceID("counter", "k1"))

	resp, err = Request[ResourceExistsRequest, ResourceExistsResponse](
		t.Context(), s, ResourceExistsRequest{Key: "k1"},
	)
	require.NoError(t, err)
	require.True(t, resp.Exists)
}

func TestSession_LossNotification(t *testing.T) {
	svc, tr := CreateTestService(t)
	s := CreateTestSession(t, tr)

	var (
		mu     sync.Mutex
		states []State
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	require.NoError(t, s.Open(t.Context()))

	svc.ExpireSessions()

	_, err := Request[ResourceExistsRequest, ResourceExistsResponse](
		t.Context(), s, ResourceExistsRequest{Key: "k"},
	)
	require.ErrorIs(t, err, ErrSessionLost)
	require.Equal(t, StateLost, s.State())

	// while lost, submissions fail fast without a round trip
	_, err = s.Submit(t.Context(), Envelope{Type: MsgResourceExists})
	require.ErrorIs(t, err, ErrSessionLost)

	// reopen bumps the generation and yields a fresh id
	require.NoError(t, s.Open(t.Context()))
	require.Equal(t, uint64(2), s.Generation())
	require.Equal(t, int64(2), s.ID())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []State{StateOpen, StateLost, StateOpen}, states)
}

func TestSession_LostOncePerGeneration(t *testing.T) {
	svc, tr := CreateTestService(t)
	s := CreateTestSession(t, tr)

	var lost int
	s.Subscribe(func(st State) {
		if st == StateLost {
			lost++
		}
	})

	require.NoError(t, s.Open(t.Context()))
	svc.ExpireSessions()

	for range 3 {
		_, err := s.Submit(t.Context(), Envelope{Type: MsgResourceExists, Data: []byte(`{"key":"k"}`)})
		require.ErrorIs(t, err, ErrSessionLost)
	}
	require.Equal(t, 1, lost)
}

func TestMemoryService_CreateAllocatesFreshIDs(t *testing.T) {
	_, tr := CreateTestService(t)
	s := CreateTestSession(t, tr)
	require.NoError(t, s.Open(t.Context()))

	a, err := Request[CreateResourceRequest, ResourceIDResponse](
		t.Context(), s, CreateResourceRequest{Key: "k", Type: "lock"},
	)
	require.NoError(t, err)
	b, err := Request[CreateResourceRequest, ResourceIDResponse](
		t.Context(), s, CreateResourceRequest{Key: "k", Type: "lock"},
	)
	require.NoError(t, err)
	require.NotEqual(t, a.ResourceID, b.ResourceID)

	// get resolves to the singleton binding, not the created instances
	g1, err := Request[GetResourceRequest, ResourceIDResponse](
		t.Context(), s, GetResourceRequest{Key: "k", Type: "lock"},
	)
	require.NoError(t, err)
	g2, err := Request[GetResourceRequest, ResourceIDResponse](
		t.Context(), s, GetResourceRequest{Key: "k", Type: "lock"},
	)
	require.NoError(t, err)
	require.Equal(t, g1.ResourceID, g2.ResourceID)
}

func TestMemoryService_IfExistsVariants(t *testing.T) {
	svc, tr := CreateTestService(t)
	s := CreateTestSession(t, tr)
	require.NoError(t, s.Open(t.Context()))

	// nothing bound yet
	r, err := Request[GetResourceIfExistsRequest, ResourceIDResponse](
		t.Context(), s, GetResourceIfExistsRequest{Key: "k", Type: "map"},
	)
	require.NoError(t, err)
	require.Zero(t, r.ResourceID)

	g, err := Request[GetResourceRequest, ResourceIDResponse](
		t.Context(), s, GetResourceRequest{Key: "k", Type: "map"},
	)
	require.NoError(t, err)

	r, err = Request[GetResourceIfExistsRequest, ResourceIDResponse](
		t.Context(), s, GetResourceIfExistsRequest{Key: "k", Type: "map"},
	)
	require.NoError(t, err)
	require.Equal(t, g.ResourceID, r.ResourceID)

	c, err := Request[CreateResourceIfExistsRequest, ResourceIDResponse](
		t.Context(), s, CreateResourceIfExistsRequest{Key: "k", Type: "map"},
	)
	require.NoError(t, err)
	require.Positive(t, c.ResourceID)
	require.NotEqual(t, g.ResourceID, c.ResourceID)

	svc.DropKey("map", "k")
	r, err = Request[GetResourceIfExistsRequest, ResourceIDResponse](
		t.Context(), s, GetResourceIfExistsRequest{Key: "k", Type: "map"},
	)
	require.NoError(t, err)
	require.Zero(t, r.ResourceID)
}

func TestMemoryTransport_Closed(t *testing.T) {
	svc := NewMemoryService()
	tr := NewInMemoryTransport(svc.Handle)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close()) // idempotent

	_, err := tr.Request(t.Context(), Envelope{Type: MsgOpenSession})
	require.ErrorIs(t, err, ErrTransportClosed)
}

func TestMemoryTransport_LateReplyAfterCancel(t *testing.T) {
	inflight := make(chan struct{})
	release := make(chan struct{})
	tr := NewInMemoryTransport(func(_ context.Context, env Envelope) ([]byte, error) {
		if env.Type == "slow" {
			close(inflight)
			<-release
		}
		return []byte(`{}`), nil
	})
	t.Cleanup(func() { _ = tr.Close() })

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		<-inflight
		cancel()
	}()

	_, err := tr.Request(ctx, Envelope{Type: "slow"})
	require.ErrorIs(t, err, context.Canceled)

	// The requester tore its inbox down; the handler's late reply must be
	// dropped, not sent into it.
	close(release)

	_, err = tr.Request(t.Context(), Envelope{Type: "fast"})
	require.NoError(t, err)
}

func TestMemoryTransport_ExpiredEnvelope(t *testing.T) {
	_, tr := CreateTestService(t)

	env := Envelope{Type: MsgOpenSession, TTLMs: 1, CreatedAtMs: 1}
	_, err := tr.Request(t.Context(), env)
	require.ErrorIs(t, err, ErrEnvelopeExpired)
}
