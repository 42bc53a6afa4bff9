package manager

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/rsrc-go/core/session"
)

func waitRecovered(t *testing.T, f *Factory) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.Recovering() && f.IsOpen()
	}, time.Second, 5*time.Millisecond)
}

func TestFactory_RebindsAfterSessionLoss(t *testing.T) {
	f, svc := CreateTestFactory(t)

	c, err := Get(t.Context(), f, "visits", "counter", buildCounter)
	require.NoError(t, err)
	oldID := c.Client().ResourceID()

	svc.ExpireSessions()
	svc.ShuffleIDs()

	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	waitRecovered(t, f)

	// same object, rebound to the reassigned id
	newID := c.Client().ResourceID()
	require.NotEqual(t, oldID, newID)
	require.Equal(t, svc.ResourceID("counter", "visits"), newID)

	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.NoError(t, err)
	require.Len(t, svc.Applied(newID), 1)

	// the factory still hands out the identical instance
	c2, err := Get(t.Context(), f, "visits", "counter", buildCounter)
	require.NoError(t, err)
	require.Same(t, c, c2)
	require.Equal(t, 1, f.Tracked())
}

func TestFactory_RebindsCreatedInstance(t *testing.T) {
	f, svc := CreateTestFactory(t)

	c, err := Create(t.Context(), f, "q", "queue", buildCounter)
	require.NoError(t, err)
	oldID := c.Client().ResourceID()

	svc.ExpireSessions()
	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	waitRecovered(t, f)

	// created instances are re-created: a fresh id, never a shared one
	newID := c.Client().ResourceID()
	require.NotEqual(t, oldID, newID)

	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.NoError(t, err)
	require.Len(t, svc.Applied(newID), 1)
}

func TestFactory_RecoversRepeatedly(t *testing.T) {
	f, svc := CreateTestFactory(t)

	c, err := Get(t.Context(), f, "visits", "counter", buildCounter)
	require.NoError(t, err)

	for range 2 {
		svc.ExpireSessions()
		svc.ShuffleIDs()

		_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
		require.ErrorIs(t, err, session.ErrSessionLost)

		waitRecovered(t, f)

		_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
		require.NoError(t, err)
	}

	require.Equal(t, uint64(3), f.Session().Generation())
}

func TestFactory_DropsHandleWhenResourceGone(t *testing.T) {
	f, svc := CreateTestFactory(t)

	c, err := Get(t.Context(), f, "gone", "counter", buildCounter)
	require.NoError(t, err)

	svc.ExpireSessions()
	svc.DropKey("counter", "gone")

	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	waitRecovered(t, f)

	// the handle lapsed; the old object is permanently inert
	require.Zero(t, f.Tracked())
	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, ErrStaleBinding)

	// a later Get starts over with a new instance
	c2, err := Get(t.Context(), f, "gone", "counter", buildCounter)
	require.NoError(t, err)
	require.NotSame(t, c, c2)
}

func TestRebindStrategy_AbortOnError_TruncatesCycle(t *testing.T) {
	f, svc := CreateTestFactory(t)

	keys := []string{"a", "b", "c", "d"}
	res := make([]*Counter, len(keys))
	for i, k := range keys {
		c, err := Get(t.Context(), f, k, "counter", buildCounter)
		require.NoError(t, err)
		res[i] = c
	}

	svc.ExpireSessions()
	// let a and b re-resolve, fail c
	svc.FailResolvesAfter(2, 1, errors.New("resolve boom"))

	_, err := res[0].SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	waitRecovered(t, f)

	// a and b were rebound before the failure
	for _, c := range res[:2] {
		_, err := c.SubmitCommand(t.Context(), incCmd{Delta: 1})
		require.NoError(t, err)
	}

	// c failed and d was never visited; both are inert now
	for _, c := range res[2:] {
		_, err := c.SubmitCommand(t.Context(), incCmd{Delta: 1})
		require.ErrorIs(t, err, ErrStaleBinding)
	}

	// d's handle is still tracked, c's is gone
	require.Equal(t, 3, f.Tracked())
}

func TestRebindStrategy_ContinueOnError_SkipsFailedEntry(t *testing.T) {
	f, svc := CreateTestFactory(t, func(o *FactoryOptions) {
		o.Recovery = NewRebindStrategy(RebindOptions{OnError: ContinueOnError})
	})

	keys := []string{"a", "b", "c", "d"}
	res := make([]*Counter, len(keys))
	for i, k := range keys {
		c, err := Get(t.Context(), f, k, "counter", buildCounter)
		require.NoError(t, err)
		res[i] = c
	}

	svc.ExpireSessions()
	svc.FailResolvesAfter(2, 1, errors.New("resolve boom"))

	_, err := res[0].SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	waitRecovered(t, f)

	// the cycle kept going past c: a, b and d are live again
	for _, i := range []int{0, 1, 3} {
		_, err := res[i].SubmitCommand(t.Context(), incCmd{Delta: 1})
		require.NoError(t, err)
	}

	_, err = res[2].SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, ErrStaleBinding)
	require.Equal(t, 3, f.Tracked())
}

func TestNopStrategy_LeavesSessionLost(t *testing.T) {
	f, svc := CreateTestFactory(t, func(o *FactoryOptions) {
		o.Recovery = NopStrategy{}
	})

	c, err := Get(t.Context(), f, "visits", "counter", buildCounter)
	require.NoError(t, err)

	svc.ExpireSessions()
	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	require.Eventually(t, func() bool {
		return !f.Recovering()
	}, time.Second, 5*time.Millisecond)

	// nothing was reopened or rebound
	require.False(t, f.IsOpen())
	require.Equal(t, session.StateLost, f.Session().State())
	require.Equal(t, 1, f.Tracked())

	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, session.ErrSessionLost)

	// an explicit reopen works, but the old binding stays on the dead
	// generation
	require.NoError(t, f.Open(t.Context()))
	_, err = c.SubmitCommand(t.Context(), incCmd{Delta: 1})
	require.ErrorIs(t, err, ErrStaleBinding)
}
