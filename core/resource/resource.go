package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/codewandler/rsrc-go/core/consistency"
)

// Type names a resource kind within the cluster-service namespace, e.g.
// "lock" or "counter". It is the descriptor sent with every resolution
// request.
type Type string

// Instance is what factories build and the manager tracks: any type
// embedding *Resource satisfies it.
type Instance interface {
	// Reset rebinds the instance to a new client without changing its
	// identity as observed by callers. Invoked by the manager during
	// session recovery.
	Reset(c Client)

	// Base exposes the embedded Resource.
	Base() *Resource
}

// Resource is the façade callers hold a long-lived reference to. It stays
// valid across session recovery: only the bound client is swapped.
//
// The consistency level is mutable via With; configure it before
// submitting concurrently.
type Resource struct {
	client atomic.Pointer[clientBox]
	level  consistency.Level
}

// clientBox exists so the atomic pointer always wraps a non-nil target.
type clientBox struct{ c Client }

// New binds a fresh façade to c.
func New(c Client) *Resource {
	r := &Resource{}
	r.client.Store(&clientBox{c: c})
	return r
}

// Base implements Instance.
func (r *Resource) Base() *Resource { return r }

// Reset swaps the bound client. Object identity is preserved; in-flight
// submissions finish against the old binding.
func (r *Resource) Reset(c Client) {
	r.client.Store(&clientBox{c: c})
}

// Client returns the current binding.
func (r *Resource) Client() Client {
	return r.client.Load().c
}

// With sets the instance consistency level and returns the resource for
// chaining. Not safe against concurrent submissions.
func (r *Resource) With(level consistency.Level) *Resource {
	if level.Valid() {
		r.level = level
	}
	return r
}

// Level returns the configured consistency level.
func (r *Resource) Level() consistency.Level { return r.level }

// SubmitCommand submits a write operation. The command travels with the
// instance level's write half unless it statically pins its own (see
// consistency.StaticWrite).
func (r *Resource) SubmitCommand(ctx context.Context, cmd any) ([]byte, error) {
	if cmd == nil {
		return nil, ErrNilOperation
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("resource: encode command: %w", err)
	}
	return r.Client().Submit(ctx, Operation{
		Kind:  OpCommand,
		Name:  operationName(cmd),
		Data:  data,
		Write: consistency.ResolveWrite(r.level, cmd),
	})
}

// SubmitQuery submits a read operation. The query travels with the
// instance level's read half unless it statically pins its own (see
// consistency.StaticRead).
func (r *Resource) SubmitQuery(ctx context.Context, query any) ([]byte, error) {
	if query == nil {
		return nil, ErrNilOperation
	}
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("resource: encode query: %w", err)
	}
	return r.Client().Submit(ctx, Operation{
		Kind: OpQuery,
		Name: operationName(query),
		Data: data,
		Read: consistency.ResolveRead(r.level, query),
	})
}

// Delete submits the well-known delete operation for this instance's
// resource state. The local handle stays registered; eviction is a
// manager-level decision.
func (r *Resource) Delete(ctx context.Context) error {
	_, err := r.Client().Submit(ctx, Operation{
		Kind: OpDelete,
		Name: "delete",
	})
	return err
}

// Equal reports session-scoped identity: two façades are equal iff their
// current client session identifiers match.
func (r *Resource) Equal(other *Resource) bool {
	if other == nil {
		return false
	}
	return r.Client().ID() == other.Client().ID()
}

func (r *Resource) String() string {
	return fmt.Sprintf("Resource[id=%s]", r.Client().ID())
}

/* ---------------------- typed helpers ---------------------- */

// Command is a typed write operation against a resource.
type Command[IN any, OUT any] struct {
	r *Resource
}

// NewCommand builds a typed command helper for r.
func NewCommand[IN any, OUT any](r *Resource) *Command[IN, OUT] {
	return &Command[IN, OUT]{r: r}
}

// Submit encodes payload, submits it as a command and decodes the reply.
func (c *Command[IN, OUT]) Submit(ctx context.Context, payload IN) (*OUT, error) {
	data, err := c.r.SubmitCommand(ctx, payload)
	if err != nil {
		return nil, err
	}
	out := new(OUT)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("resource: decode command result: %w", err)
	}
	return out, nil
}

// Query is a typed read operation against a resource.
type Query[IN any, OUT any] struct {
	r *Resource
}

// NewQuery builds a typed query helper for r.
func NewQuery[IN any, OUT any](r *Resource) *Query[IN, OUT] {
	return &Query[IN, OUT]{r: r}
}

// Submit encodes payload, submits it as a query and decodes the reply.
func (q *Query[IN, OUT]) Submit(ctx context.Context, payload IN) (*OUT, error) {
	data, err := q.r.SubmitQuery(ctx, payload)
	if err != nil {
		return nil, err
	}
	out := new(OUT)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("resource: decode query result: %w", err)
	}
	return out, nil
}
