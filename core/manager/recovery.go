package manager

import (
	"context"
	"log/slog"

	"github.com/codewandler/rsrc-go/core/session"
)

// RecoveryStrategy decides what happens to tracked instances after a
// session loss. The factory runs it once per detected loss, on its own
// goroutine, never concurrently with itself.
type RecoveryStrategy interface {
	Recover(ctx context.Context, r Rebinder) error
}

// Rebinder is the surface the factory exposes to recovery strategies.
type Rebinder interface {
	// Reopen re-establishes the underlying session. Until it succeeds the
	// registry is untouched.
	Reopen(ctx context.Context) error

	// Next removes and returns the next tracked entry, in resource-id
	// order. Entries a strategy never restores stay unbound.
	Next() (Entry, bool)

	// Restore re-resolves the entry against the current session according
	// to its method: Get asks for the id if the key still exists, Create
	// asks for a fresh instance if the key still exists. On a positive id
	// the instance is rebound in place and re-registered and Restore
	// returns true; on a non-positive id the handle is dropped for good
	// and Restore returns false.
	Restore(ctx context.Context, e Entry) (bool, error)
}

// Entry is one tracked instance handed to a recovery strategy.
type Entry struct {
	id int64
	h  *handle
}

func (e Entry) Key() string    { return e.h.key }
func (e Entry) Method() Method { return e.h.method }

// RebindFailure selects how a rebind cycle treats a re-resolution error.
type RebindFailure int8

const (
	// AbortOnError stops the cycle at the first failed re-resolution,
	// leaving the remaining entries unrecovered until the next loss.
	AbortOnError RebindFailure = iota
	// ContinueOnError skips the failed entry and keeps rebinding the rest.
	ContinueOnError
)

type RebindOptions struct {
	Log     *slog.Logger
	OnError RebindFailure
}

// RebindStrategy is the default recovery strategy: reopen the session,
// then re-resolve every tracked handle sequentially, one round trip in
// flight at a time.
type RebindStrategy struct {
	log     *slog.Logger
	onError RebindFailure
}

func NewRebindStrategy(opts RebindOptions) *RebindStrategy {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &RebindStrategy{
		log:     log.With(slog.String("component", "recovery")),
		onError: opts.OnError,
	}
}

func (s *RebindStrategy) Recover(ctx context.Context, r Rebinder) error {
	if err := r.Reopen(ctx); err != nil {
		s.log.Warn("failed to recover client session", slog.Any("error", err))
		return err
	}

	var rebound, dropped int
	for {
		e, ok := r.Next()
		if !ok {
			break
		}

		s.log.Debug("recovering resource", slog.String("key", e.Key()))
		restored, err := r.Restore(ctx, e)
		switch {
		case err != nil:
			s.log.Warn("failed to recover resource",
				slog.String("key", e.Key()),
				slog.Any("error", err),
			)
			if s.onError == AbortOnError {
				return err
			}
		case restored:
			rebound++
		default:
			dropped++
			s.log.Debug("resource gone, dropping handle", slog.String("key", e.Key()))
		}
	}

	s.log.Info("recovered resources",
		slog.Int("rebound", rebound),
		slog.Int("dropped", dropped),
	)
	return nil
}

// NopStrategy lets every tracked handle lapse: the session stays lost and
// nothing is rebound until the caller reopens explicitly.
type NopStrategy struct{}

func (NopStrategy) Recover(context.Context, Rebinder) error { return nil }

/* ---------------------- factory side ---------------------- */

// rebinder adapts the factory to the Rebinder interface.
type rebinder struct {
	f *Factory
}

func (r *rebinder) Reopen(ctx context.Context) error {
	return r.f.session.Open(ctx)
}

func (r *rebinder) Next() (Entry, bool) {
	id, h, ok := r.f.reg.take()
	if !ok {
		return Entry{}, false
	}
	return Entry{id: id, h: h}, true
}

func (r *rebinder) Restore(ctx context.Context, e Entry) (bool, error) {
	f := r.f

	var (
		resp *session.ResourceIDResponse
		err  error
	)
	switch e.h.method {
	case MethodCreate:
		resp, err = session.Request[session.CreateResourceIfExistsRequest, session.ResourceIDResponse](
			ctx, f.session,
			session.CreateResourceIfExistsRequest{Key: e.h.key, Type: string(e.h.rtype)},
			session.WithHeader(session.HeaderKey, e.h.key),
		)
	default:
		resp, err = session.Request[session.GetResourceIfExistsRequest, session.ResourceIDResponse](
			ctx, f.session,
			session.GetResourceIfExistsRequest{Key: e.h.key, Type: string(e.h.rtype)},
			session.WithHeader(session.HeaderKey, e.h.key),
		)
	}
	if err != nil {
		f.metrics.ResourceRecovered("failed")
		return false, err
	}

	if resp.ResourceID <= 0 {
		f.metrics.ResourceRecovered("dropped")
		return false, nil
	}

	e.h.instance.Reset(newInstanceClient(f.session, resp.ResourceID))
	f.reg.insert(resp.ResourceID, e.h)
	f.metrics.ResourceRecovered("rebound")
	return true, nil
}

var (
	_ RecoveryStrategy = (*RebindStrategy)(nil)
	_ RecoveryStrategy = NopStrategy{}
	_ Rebinder         = (*rebinder)(nil)
)
