// Package manager multiplexes logical resource instances over a single
// cluster session and re-establishes their bindings after session loss.
//
// # Factory
//
// [Factory] is the public entry point. [Get] resolves a key with singleton
// semantics: every Get for the same key on this process returns the
// identical instance, constructed exactly once even under concurrent
// calls. [Create] always allocates an independent instance with its own
// resource id, even when the key is shared:
//
//	f, _ := manager.NewFactory(manager.FactoryOptions{Session: sess})
//	_ = f.Open(ctx)
//
//	counter, err := manager.Get(ctx, f, "visits", "counter",
//	    func(c resource.Client) (*Counter, error) {
//	        return &Counter{Resource: resource.New(c)}, nil
//	    })
//
// # Recovery
//
// When the session is lost the factory runs its [RecoveryStrategy] once
// per loss (duplicate notifications during a running cycle are ignored).
// The default [RebindStrategy] reopens the session and walks the tracked
// handles one at a time, in resource-id order: each handle is re-resolved
// by key according to how it was obtained (Get or Create), rebound in
// place on success, dropped permanently when the key is gone. Callers keep
// their references through the whole cycle; only the instance's internal
// binding changes.
//
// A re-resolution failure aborts the remaining cycle by default; configure
// [RebindOptions].OnError with [ContinueOnError] to skip failed handles
// instead. Handles left unvisited by an aborted cycle stay registered but
// bound to the dead generation, so their submissions fail with
// [ErrStaleBinding].
package manager
