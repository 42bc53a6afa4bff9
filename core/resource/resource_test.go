package resource

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/rsrc-go/core/consistency"
)

// fakeClient records submitted operations and echoes payloads.
type fakeClient struct {
	id  string
	rid int64
	ops []Operation
}

func (f *fakeClient) ID() string        { return f.id }
func (f *fakeClient) ResourceID() int64 { return f.rid }
func (f *fakeClient) Submit(_ context.Context, op Operation) ([]byte, error) {
	f.ops = append(f.ops, op)
	if op.Data == nil {
		return []byte(`{}`), nil
	}
	return op.Data, nil
}

type setCmd struct {
	Value string `json:"value"`
}

type getQuery struct{}

type pinnedCmd struct{}

func (pinnedCmd) WriteConsistency() consistency.Write { return consistency.WriteLinearizable }

func TestResource_SubmitCommand_UsesInstanceLevel(t *testing.T) {
	fc := &fakeClient{id: "1", rid: 5}
	r := New(fc)

	_, err := r.SubmitCommand(t.Context(), setCmd{Value: "x"})
	require.NoError(t, err)
	require.Len(t, fc.ops, 1)

	op := fc.ops[0]
	require.Equal(t, OpCommand, op.Kind)
	require.Contains(t, op.Name, "setCmd")
	require.Equal(t, consistency.WriteLinearizable, op.Write) // default Atomic

	// weaker instance level propagates
	r.With(consistency.Eventual)
	_, err = r.SubmitCommand(t.Context(), setCmd{Value: "y"})
	require.NoError(t, err)
	require.Equal(t, consistency.WriteNone, fc.ops[1].Write)
}

func TestResource_StaticConsistencyWins(t *testing.T) {
	fc := &fakeClient{id: "1"}
	r := New(fc).With(consistency.Eventual)

	_, err := r.SubmitCommand(t.Context(), pinnedCmd{})
	require.NoError(t, err)
	require.Equal(t, consistency.WriteLinearizable, fc.ops[0].Write)
}

func TestResource_SubmitQuery(t *testing.T) {
	fc := &fakeClient{id: "1"}
	r := New(fc).With(consistency.Sequential)

	_, err := r.SubmitQuery(t.Context(), getQuery{})
	require.NoError(t, err)
	require.Equal(t, OpQuery, fc.ops[0].Kind)
	require.Equal(t, consistency.ReadSequential, fc.ops[0].Read)
}

func TestResource_NilOperation(t *testing.T) {
	r := New(&fakeClient{})
	_, err := r.SubmitCommand(t.Context(), nil)
	require.ErrorIs(t, err, ErrNilOperation)
	_, err = r.SubmitQuery(t.Context(), nil)
	require.ErrorIs(t, err, ErrNilOperation)
}

func TestResource_Delete(t *testing.T) {
	fc := &fakeClient{id: "1"}
	r := New(fc)

	require.NoError(t, r.Delete(t.Context()))
	require.Equal(t, OpDelete, fc.ops[0].Kind)
	require.Equal(t, "delete", fc.ops[0].Name)
}

func TestResource_Reset_PreservesIdentity(t *testing.T) {
	fc := &fakeClient{id: "1", rid: 5}
	r := New(fc)

	other := New(&fakeClient{id: "1"})
	require.True(t, r.Equal(other))

	// rebind to a new id; the object reference stays the same
	nc := &fakeClient{id: "2", rid: 12}
	r.Reset(nc)
	require.Equal(t, int64(12), r.Client().ResourceID())
	require.False(t, r.Equal(other))

	_, err := r.SubmitCommand(t.Context(), setCmd{Value: "z"})
	require.NoError(t, err)
	require.Empty(t, fc.ops)
	require.Len(t, nc.ops, 1)
}

func TestResource_Equal(t *testing.T) {
	a := New(&fakeClient{id: "7"})
	b := New(&fakeClient{id: "7"})
	c := New(&fakeClient{id: "8"})

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
	require.Contains(t, a.String(), "7")
}

func TestTypedHelpers(t *testing.T) {
	fc := &fakeClient{id: "1"}
	r := New(fc)

	out, err := NewCommand[setCmd, setCmd](r).Submit(t.Context(), setCmd{Value: "v"})
	require.NoError(t, err)
	require.Equal(t, "v", out.Value)

	q, err := NewQuery[getQuery, map[string]any](r).Submit(t.Context(), getQuery{})
	require.NoError(t, err)
	require.NotNil(t, q)
}

func TestInstance_Embedding(t *testing.T) {
	type Counter struct {
		*Resource
	}

	c := &Counter{Resource: New(&fakeClient{id: "1"})}
	var inst Instance = c
	require.Same(t, c.Resource, inst.Base())

	raw, err := json.Marshal(setCmd{Value: "a"})
	require.NoError(t, err)
	require.NotNil(t, raw)
}
