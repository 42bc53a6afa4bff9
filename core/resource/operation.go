package resource

import (
	"context"

	"github.com/codewandler/rsrc-go/core/consistency"
	"github.com/codewandler/rsrc-go/internal/reflector"
)

// OpKind discriminates how the cluster service treats an operation.
type OpKind int8

const (
	OpCommand OpKind = iota
	OpQuery
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCommand:
		return "command"
	case OpQuery:
		return "query"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is the envelope a resource submits: the named payload plus the
// resolved consistency halves. The bound Client addresses it to the
// instance's current resource id.
type Operation struct {
	Kind  OpKind
	Name  string
	Data  []byte
	Write consistency.Write // valid for OpCommand
	Read  consistency.Read  // valid for OpQuery
}

// Client is a resource instance's view of the underlying cluster session.
// Implemented by the manager package; swapped wholesale on recovery.
type Client interface {
	// ID is the identifier of the session the instance currently submits
	// through. Two resources are equal iff their client ids match, so the
	// identity this yields is session-scoped, not resource-scoped.
	ID() string

	// ResourceID is the id the instance currently targets. Not stable
	// across session generations.
	ResourceID() int64

	// Submit sends an operation addressed to this instance.
	Submit(ctx context.Context, op Operation) ([]byte, error)
}

// operationName derives the wire name of a command/query payload. Payloads
// can override the reflected name by implementing MessageType() string.
func operationName(v any) string {
	if t, ok := v.(interface{ MessageType() string }); ok {
		return t.MessageType()
	}
	return reflector.NameOf(v)
}
