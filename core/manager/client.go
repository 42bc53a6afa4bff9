package manager

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/codewandler/rsrc-go/core/resource"
	"github.com/codewandler/rsrc-go/core/session"
)

// instanceClient is the per-instance binding handed to resource façades:
// a resource id plus the session generation it was resolved against.
// Recovery replaces the whole client instead of mutating it.
type instanceClient struct {
	s   *session.Session
	rid int64
	gen uint64
	sid string
}

func newInstanceClient(s *session.Session, rid int64) *instanceClient {
	return &instanceClient{
		s:   s,
		rid: rid,
		gen: s.Generation(),
		sid: strconv.FormatInt(s.ID(), 10),
	}
}

// ID is the session identifier of the current binding. Resource equality
// is session-scoped: every instance bound to the same session generation
// reports the same ID.
func (c *instanceClient) ID() string        { return c.sid }
func (c *instanceClient) ResourceID() int64 { return c.rid }

func (c *instanceClient) Submit(ctx context.Context, op resource.Operation) ([]byte, error) {
	// A binding from an older generation was not rebound by recovery; the
	// instance is inert until obtained again.
	if c.s.Generation() != c.gen {
		return nil, ErrStaleBinding
	}

	// Deletes travel as a protocol message addressed by id, not as a
	// resource operation.
	if op.Kind == resource.OpDelete {
		data, err := json.Marshal(session.DeleteResourceRequest{ResourceID: c.rid})
		if err != nil {
			return nil, err
		}
		return c.s.Submit(ctx, session.Envelope{
			Type:     session.MsgDeleteResource,
			Resource: c.rid,
			Data:     data,
		})
	}

	env := session.Envelope{
		Type:     op.Name,
		Resource: c.rid,
		Kind:     opKind(op.Kind),
		Data:     op.Data,
	}
	switch op.Kind {
	case resource.OpCommand:
		env.Consistency = op.Write.String()
	case resource.OpQuery:
		env.Consistency = op.Read.String()
	}

	return c.s.Submit(ctx, env)
}

func opKind(k resource.OpKind) string {
	if k == resource.OpQuery {
		return session.KindQuery
	}
	return session.KindCommand
}

var _ resource.Client = (*instanceClient)(nil)
