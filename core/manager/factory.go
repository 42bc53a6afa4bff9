package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/codewandler/rsrc-go/core/resource"
	"github.com/codewandler/rsrc-go/core/session"
	"github.com/codewandler/rsrc-go/core/sf"
)

type FactoryOptions struct {
	Session *session.Session // required
	Log     *slog.Logger     // optional, defaults to slog.Default()
	Metrics ManagerMetrics   // optional
	// Recovery replaces the default rebind strategy. Use NopStrategy to
	// let every tracked handle lapse on loss.
	Recovery RecoveryStrategy
}

// Factory resolves keys to resource instances and keeps them bound across
// session recovery. One factory owns one session and one registry;
// multiple cluster connections in a process need one factory each.
type Factory struct {
	session  *session.Session
	log      *slog.Logger
	metrics  ManagerMetrics
	strategy RecoveryStrategy
	reg      *registry

	flight sf.Group[resource.Instance]

	watchOnce  sync.Once
	recovering atomic.Bool
}

func NewFactory(opts FactoryOptions) (*Factory, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("manager: FactoryOptions.Session is required")
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	m := opts.Metrics
	if m == nil {
		m = NopManagerMetrics()
	}

	f := &Factory{
		session: opts.Session,
		log:     log.With(slog.String("component", "manager")),
		metrics: m,
		reg:     newRegistry(),
	}

	f.strategy = opts.Recovery
	if f.strategy == nil {
		f.strategy = NewRebindStrategy(RebindOptions{Log: log})
	}

	return f, nil
}

// Session returns the underlying cluster session.
func (f *Factory) Session() *session.Session { return f.session }

// Open opens the underlying session and arms the loss watcher.
func (f *Factory) Open(ctx context.Context) error {
	f.watchOnce.Do(func() {
		f.session.Subscribe(func(st session.State) {
			if st == session.StateLost {
				f.onLost()
			}
		})
	})
	return f.session.Open(ctx)
}

// Close ends the local binding. Resource state in the cluster is never
// deleted by closing; use Resource.Delete for that.
func (f *Factory) Close(ctx context.Context) error {
	return f.session.Close(ctx)
}

func (f *Factory) IsOpen() bool   { return f.session.IsOpen() }
func (f *Factory) IsClosed() bool { return f.session.IsClosed() }

// Tracked returns the number of instances currently bound.
func (f *Factory) Tracked() int { return f.reg.len() }

// Recovering reports whether a recovery cycle is in flight.
func (f *Factory) Recovering() bool { return f.recovering.Load() }

// Exists queries the cluster for key presence. The answer is racy by
// nature: the key may be created or deleted by another node right after
// the reply; never treat it as a guarantee.
func (f *Factory) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}

	defer f.metrics.ResolveDuration("exists").ObserveDuration()
	resp, err := session.Request[session.ResourceExistsRequest, session.ResourceExistsResponse](
		ctx, f.session, session.ResourceExistsRequest{Key: key},
		session.WithHeader(session.HeaderKey, key),
	)
	f.metrics.ResolveCompleted("exists", err == nil)
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// BuildFunc constructs a concrete resource instance over its session
// binding.
type BuildFunc[T resource.Instance] func(c resource.Client) (T, error)

// Get resolves key with singleton semantics: repeated calls for the same
// key on this factory return the identical instance, constructed exactly
// once even under concurrent calls. The declared type must match the
// tracked instance's type; a mismatch is reported as ErrTypeConflict
// instead of silently reusing the instance.
func Get[T resource.Instance](ctx context.Context, f *Factory, key string, rtype resource.Type, build BuildFunc[T]) (T, error) {
	var zero T
	if build == nil {
		return zero, ErrBuildRequired
	}
	if err := checkArgs(key, rtype); err != nil {
		return zero, err
	}

	inst, err := f.flight.Do("get/"+string(rtype)+"/"+key, func() (resource.Instance, error) {
		return f.resolveGet(ctx, key, rtype, func(c resource.Client) (resource.Instance, error) {
			return build(c)
		})
	})
	if err != nil {
		return zero, err
	}

	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("manager: %w: %q is tracked as %T", ErrTypeConflict, key, inst)
	}
	return typed, nil
}

// Create allocates an independent instance for key: a fresh resource id
// and a fresh object on every call, even when other bindings for the key
// exist. Operations on one created instance are not observable on another.
func Create[T resource.Instance](ctx context.Context, f *Factory, key string, rtype resource.Type, build BuildFunc[T]) (T, error) {
	var zero T
	if build == nil {
		return zero, ErrBuildRequired
	}
	if err := checkArgs(key, rtype); err != nil {
		return zero, err
	}

	defer f.metrics.ResolveDuration("create").ObserveDuration()
	resp, err := session.Request[session.CreateResourceRequest, session.ResourceIDResponse](
		ctx, f.session, session.CreateResourceRequest{Key: key, Type: string(rtype)},
		session.WithHeader(session.HeaderKey, key),
	)
	f.metrics.ResolveCompleted("create", err == nil)
	if err != nil {
		return zero, err
	}

	inst, err := build(newInstanceClient(f.session, resp.ResourceID))
	if err != nil {
		return zero, fmt.Errorf("%w: build %q: %w", ErrConstruct, key, err)
	}

	f.reg.insert(resp.ResourceID, &handle{
		key:      key,
		rtype:    rtype,
		method:   MethodCreate,
		instance: inst,
	})
	f.metrics.ResourcesTracked(f.reg.len())

	f.log.Debug("resource created",
		slog.String("key", key),
		slog.String("type", string(rtype)),
		slog.Int64("resource", resp.ResourceID),
	)
	return inst, nil
}

func (f *Factory) resolveGet(ctx context.Context, key string, rtype resource.Type, build func(resource.Client) (resource.Instance, error)) (resource.Instance, error) {
	defer f.metrics.ResolveDuration("get").ObserveDuration()
	resp, err := session.Request[session.GetResourceRequest, session.ResourceIDResponse](
		ctx, f.session, session.GetResourceRequest{Key: key, Type: string(rtype)},
		session.WithHeader(session.HeaderKey, key),
	)
	f.metrics.ResolveCompleted("get", err == nil)
	if err != nil {
		return nil, err
	}

	h, inserted, err := f.reg.getOrInsert(resp.ResourceID, func() (*handle, error) {
		inst, err := build(newInstanceClient(f.session, resp.ResourceID))
		if err != nil {
			return nil, fmt.Errorf("%w: build %q: %w", ErrConstruct, key, err)
		}
		return &handle{
			key:      key,
			rtype:    rtype,
			method:   MethodGet,
			instance: inst,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if !inserted && h.rtype != rtype {
		return nil, fmt.Errorf("manager: %w: %q requested as %q but tracked as %q",
			ErrTypeConflict, key, rtype, h.rtype)
	}

	if inserted {
		f.metrics.ResourcesTracked(f.reg.len())
		f.log.Debug("resource bound",
			slog.String("key", key),
			slog.String("type", string(rtype)),
			slog.Int64("resource", resp.ResourceID),
		)
	}
	return h.instance, nil
}

// onLost starts one recovery cycle per detected loss. Notifications
// arriving while a cycle runs are ignored.
func (f *Factory) onLost() {
	if !f.recovering.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer f.recovering.Store(false)

		timer := f.metrics.RecoveryDuration()
		err := f.strategy.Recover(context.Background(), &rebinder{f: f})
		timer.ObserveDuration()
		f.metrics.RecoveryCompleted(err == nil)
		f.metrics.ResourcesTracked(f.reg.len())
	}()
}

func checkArgs(key string, rtype resource.Type) error {
	if key == "" {
		return ErrKeyRequired
	}
	if rtype == "" {
		return ErrTypeRequired
	}
	return nil
}
