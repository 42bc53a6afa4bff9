package nats

import (
	"testing"

	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestReuseConnection_SharesOneDial(t *testing.T) {
	var dials, closes int
	connect := ReuseConnection(func() (*natsgo.Conn, closeFunc, error) {
		dials++
		return nil, func() { closes++ }, nil
	})

	_, release1, err := connect()
	require.NoError(t, err)
	_, release2, err := connect()
	require.NoError(t, err)
	require.Equal(t, 1, dials)

	// the connection outlives all but the last release
	release1()
	require.Equal(t, 0, closes)
	release2()
	require.Equal(t, 1, closes)

	// a lease taken after full release dials again
	_, release3, err := connect()
	require.NoError(t, err)
	require.Equal(t, 2, dials)
	release3()
	require.Equal(t, 2, closes)
}

func TestConnectDefault_HonorsEnv(t *testing.T) {
	t.Setenv("RSRC_NATS_URL", "nats://somewhere:4222")
	require.NotNil(t, ConnectDefault())
}
