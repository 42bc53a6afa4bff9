package manager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/rsrc-go/core/session"
)

// CreateTestFactory wires a factory to an in-memory cluster service and
// opens it. The service handle is returned for fault injection.
func CreateTestFactory(t *testing.T, opts ...func(*FactoryOptions)) (*Factory, *session.MemoryService) {
	svc, tr := session.CreateTestService(t)

	s, err := session.New(session.Options{Transport: tr})
	require.NoError(t, err)

	fopts := FactoryOptions{Session: s}
	for _, o := range opts {
		o(&fopts)
	}

	f, err := NewFactory(fopts)
	require.NoError(t, err)
	require.NoError(t, f.Open(t.Context()))

	return f, svc
}
