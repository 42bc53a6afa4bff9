package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestService wires a MemoryService to a MemoryTransport and tears
// both down with the test.
func CreateTestService(t *testing.T) (*MemoryService, *MemoryTransport) {
	svc := NewMemoryService()
	tr := NewInMemoryTransport(svc.Handle)
	t.Cleanup(func() {
		require.NoError(t, tr.Close())
	})
	return svc, tr
}

// CreateTestSession returns an unopened session over tr.
func CreateTestSession(t *testing.T, tr Transport) *Session {
	s, err := New(Options{Transport: tr})
	require.NoError(t, err)
	return s
}
