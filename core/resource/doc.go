// Package resource provides the caller-facing façade over a distributed
// resource instance.
//
// A [Resource] binds a [Client] (the instance's view of the cluster
// session) to a configured [consistency.Level]. Concrete resource types
// embed *Resource and express their operations as plain structs submitted
// through [Resource.SubmitCommand], [Resource.SubmitQuery] or the typed
// [Command] and [Query] helpers:
//
//	type Counter struct {
//	    *resource.Resource
//	}
//
//	type incrementCmd struct {
//	    Delta int64 `json:"delta"`
//	}
//
//	func (c *Counter) Increment(ctx context.Context, delta int64) error {
//	    _, err := c.SubmitCommand(ctx, incrementCmd{Delta: delta})
//	    return err
//	}
//
// The manager package resolves keys to resource ids, constructs instances
// and rebinds them in place after a session loss via [Resource.Reset] —
// callers keep their references through the whole cycle.
package resource
